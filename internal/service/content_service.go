package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/content"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/gate"
	"github.com/kmkrofficial/signature/internal/media"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 10 << 20

// ContentService wraps the document and image stores with validation and auditing.
type ContentService struct {
	documents *content.Store
	images    *media.Store // nil if media is not configured
	auditor   core.Auditor
}

func NewContentService(documents *content.Store, images *media.Store, auditor core.Auditor) *ContentService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &ContentService{
		documents: documents,
		images:    images,
		auditor:   auditor,
	}
}

func (s *ContentService) Portfolio(ctx context.Context) (*content.Portfolio, error) {
	p, err := s.documents.Portfolio(ctx)
	if err != nil {
		return nil, internal(fmt.Errorf("loading portfolio: %w", err))
	}
	return p, nil
}

func (s *ContentService) List(ctx context.Context, section string) ([]content.Document, error) {
	sec, err := content.ParseEditable(section)
	if err != nil {
		return nil, httpError(http.StatusNotFound, err)
	}
	docs, err := s.documents.List(ctx, sec)
	if err != nil {
		return nil, internal(err)
	}
	return docs, nil
}

func (s *ContentService) Create(ctx context.Context, section string, data map[string]any) (*content.Document, error) {
	sec, err := content.ParseEditable(section)
	if err != nil {
		return nil, httpError(http.StatusNotFound, err)
	}
	doc, err := s.documents.Create(ctx, sec, data)
	s.audit(ctx, core.ActionContentWrite, string(sec), idOf(doc), err)
	if err != nil {
		return nil, internal(err)
	}
	return doc, nil
}

func (s *ContentService) Update(ctx context.Context, section, id string, data map[string]any) (*content.Document, error) {
	sec, err := content.ParseEditable(section)
	if err != nil {
		return nil, httpError(http.StatusNotFound, err)
	}
	if id == "" {
		return nil, badRequest(fmt.Errorf("missing document id"))
	}
	doc, err := s.documents.Merge(ctx, sec, id, data)
	s.audit(ctx, core.ActionContentWrite, string(sec), id, err)
	if err != nil {
		return nil, internal(err)
	}
	return doc, nil
}

func (s *ContentService) Delete(ctx context.Context, section, id string) error {
	sec, err := content.ParseEditable(section)
	if err != nil {
		return httpError(http.StatusNotFound, err)
	}
	err = s.documents.Delete(ctx, sec, id)
	s.audit(ctx, core.ActionContentDelete, string(sec), id, err)
	switch {
	case errors.Is(err, content.ErrNotFound):
		return httpError(http.StatusNotFound, err)
	case err != nil:
		return internal(err)
	}
	return nil
}

func (s *ContentService) Messages(ctx context.Context) ([]content.Document, error) {
	docs, err := s.documents.List(ctx, content.SectionMessages)
	if err != nil {
		return nil, internal(err)
	}
	return docs, nil
}

var errMediaDisabled = httpError(http.StatusServiceUnavailable, fmt.Errorf("media storage is not configured"))

func (s *ContentService) Images(ctx context.Context) ([]media.Image, error) {
	if s.images == nil {
		return nil, errMediaDisabled
	}
	images, err := s.images.List(ctx)
	if err != nil {
		return nil, internal(fmt.Errorf("failed to list images: %w", err))
	}
	return images, nil
}

func (s *ContentService) UploadImage(ctx context.Context, name, contentType string, data []byte) (*media.Image, error) {
	if s.images == nil {
		return nil, errMediaDisabled
	}
	if len(data) == 0 {
		return nil, badRequest(fmt.Errorf("no file provided"))
	}
	img, err := s.images.Upload(ctx, name, contentType, data)
	key := ""
	if img != nil {
		key = img.FullPath
	}
	s.audit(ctx, core.ActionMediaUpload, "media", key, err)
	switch {
	case errors.Is(err, media.ErrEmptyName):
		return nil, badRequest(err)
	case err != nil:
		return nil, internal(fmt.Errorf("failed to upload image: %w", err))
	}
	return img, nil
}

func (s *ContentService) DeleteImage(ctx context.Context, key string) error {
	if s.images == nil {
		return errMediaDisabled
	}
	err := s.images.Delete(ctx, key)
	s.audit(ctx, core.ActionMediaDelete, "media", key, err)
	switch {
	case errors.Is(err, media.ErrEmptyKey):
		return badRequest(err)
	case err != nil:
		return internal(fmt.Errorf("failed to delete image: %w", err))
	}
	return nil
}

func (s *ContentService) audit(ctx context.Context, action, section, id string, err error) {
	entry := core.AuditEntry{
		ID:       audit.CorrelationID(ctx),
		Time:     time.Now(),
		Action:   action,
		Success:  err == nil,
		Metadata: map[string]any{"section": section, "id": id},
	}
	if p, sid, ok := gate.PrincipalFromContext(ctx); ok {
		entry.Principal = p
		entry.SessionID = sid
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if logErr := s.auditor.Log(entry); logErr != nil {
		log.Ctx(ctx).Error().Err(logErr).Msg("failed to write audit log entry")
	}
}

func idOf(doc *content.Document) string {
	if doc == nil {
		return ""
	}
	return doc.ID
}
