package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/kmkrofficial/signature/internal/content"
)

const (
	counterViews = "views"
	counterLikes = "likes"
)

var errPostNotFound = httpError(http.StatusNotFound, fmt.Errorf("post not found"))

// PublishedPosts lists the blog posts visitors may read, newest first.
func (s *ContentService) PublishedPosts(ctx context.Context) ([]content.Document, error) {
	docs, err := s.documents.Find(ctx, content.SectionBlog, content.Filter{
		Match: map[string]any{"published": true},
	})
	if err != nil {
		return nil, internal(fmt.Errorf("listing posts: %w", err))
	}
	slices.Reverse(docs)
	return docs, nil
}

// Post returns the published post with the given slug. Drafts are not found.
func (s *ContentService) Post(ctx context.Context, slug string) (*content.Document, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, badRequest(fmt.Errorf("missing slug"))
	}
	docs, err := s.documents.Find(ctx, content.SectionBlog, content.Filter{
		Match: map[string]any{"slug": slug, "published": true},
		Limit: 1,
	})
	if err != nil {
		return nil, internal(fmt.Errorf("looking up post: %w", err))
	}
	if len(docs) == 0 {
		return nil, errPostNotFound
	}
	return &docs[0], nil
}

// CountView records one read of a published post.
func (s *ContentService) CountView(ctx context.Context, slug string) (*content.Document, error) {
	return s.bump(ctx, slug, counterViews, 1)
}

// Like adds a like to a published post, or takes one back if undo is set.
func (s *ContentService) Like(ctx context.Context, slug string, undo bool) (*content.Document, error) {
	delta := 1
	if undo {
		delta = -1
	}
	return s.bump(ctx, slug, counterLikes, delta)
}

func (s *ContentService) bump(ctx context.Context, slug, counter string, delta int) (*content.Document, error) {
	post, err := s.Post(ctx, slug)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.Increment(ctx, content.SectionBlog, post.ID, counter, delta)
	switch {
	case errors.Is(err, content.ErrNotFound):
		return nil, errPostNotFound
	case err != nil:
		return nil, internal(fmt.Errorf("counting %s: %w", counter, err))
	}
	return doc, nil
}
