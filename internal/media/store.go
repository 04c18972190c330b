package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/kmkrofficial/signature/internal/config"
)

const (
	OriginalsPrefix  = "originals/"
	ThumbnailsPrefix = "thumbnails/"

	placeholderSuffix = ".emptyFolderPlaceholder"
	cacheControl      = "max-age=3600"
)

var (
	ErrEmptyKey  = errors.New("no key provided")
	ErrEmptyName = errors.New("file name is empty after sanitizing")

	whitespace = regexp.MustCompile(`\s+`)
	unsafeChar = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Image is a stored original with its derived public URLs.
type Image struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	FullPath     string    `json:"fullPath"`
	TimeCreated  time.Time `json:"timeCreated"`
	Size         int64     `json:"size"`
}

// Store manages images in an S3 compatible bucket.
type Store struct {
	client  ObjectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Store creates a store from the media configuration. A custom endpoint switches
// to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.MediaConfig) (*Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return NewStore(s3.NewFromConfig(awsCfg, s3opts...), cfg), nil
}

func NewStore(client ObjectAPI, cfg config.MediaConfig) *Store {
	return &Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: PublicBaseURL(cfg),
		now:     time.Now,
	}
}

// PublicBaseURL returns the configured public URL, or derives it from the S3 endpoint
// (".../storage/v1/s3" becomes ".../storage/v1/object/public").
func PublicBaseURL(cfg config.MediaConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimSuffix(cfg.PublicBaseURL, "/")
	}
	return strings.Replace(cfg.Endpoint, "/s3", "/object/public", 1)
}

func (s *Store) publicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}

// List returns all originals, newest first.
func (s *Store) List(ctx context.Context) ([]Image, error) {
	images := make([]Image, 0)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(OriginalsPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, placeholderSuffix) {
				continue
			}
			name := strings.TrimPrefix(key, OriginalsPrefix)
			images = append(images, Image{
				Name:         name,
				URL:          s.publicURL(key),
				ThumbnailURL: s.publicURL(ThumbnailsPrefix + name),
				FullPath:     key,
				TimeCreated:  aws.ToTime(obj.LastModified),
				Size:         aws.ToInt64(obj.Size),
			})
		}
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].TimeCreated.After(images[j].TimeCreated)
	})
	return images, nil
}

// SanitizeName replaces whitespace with dashes and drops everything but letters,
// digits, dots and dashes.
func SanitizeName(name string) string {
	name = whitespace.ReplaceAllString(name, "-")
	return unsafeChar.ReplaceAllString(name, "")
}

// Upload stores data as a new original and returns it.
func (s *Store) Upload(ctx context.Context, name, contentType string, data []byte) (*Image, error) {
	clean := SanitizeName(name)
	if clean == "" {
		return nil, ErrEmptyName
	}
	now := s.now()
	unique := fmt.Sprintf("%d-%s", now.UnixMilli(), clean)
	key := OriginalsPrefix + unique

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 put object: %w", err)
	}

	return &Image{
		Name:         unique,
		URL:          s.publicURL(key),
		ThumbnailURL: s.publicURL(ThumbnailsPrefix + unique),
		FullPath:     key,
		TimeCreated:  now,
		Size:         int64(len(data)),
	}, nil
}

// Delete removes an original and its thumbnail. key may carry either prefix or none.
func (s *Store) Delete(ctx context.Context, key string) error {
	name := strings.TrimPrefix(key, OriginalsPrefix)
	name = strings.TrimPrefix(name, ThumbnailsPrefix)
	if name == "" {
		return ErrEmptyKey
	}

	for _, k := range []string{OriginalsPrefix + name, ThumbnailsPrefix + name} {
		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(k),
		})
		if err != nil {
			return fmt.Errorf("s3 delete object %s: %w", k, err)
		}
	}
	return nil
}
