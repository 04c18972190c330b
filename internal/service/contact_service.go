package service

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/content"
	"github.com/kmkrofficial/signature/internal/core"
)

const maxMessageLength = 5000

var ErrContactRateLimited = httpError(http.StatusTooManyRequests,
	fmt.Errorf("rate limit exceeded, please wait before sending another message"))

// ContactService accepts messages from the public contact form.
// Each sender email may send one message per window. The limit is checked against
// the stored messages, so it holds across restarts.
type ContactService struct {
	documents *content.Store
	window    time.Duration
	now       func() time.Time

	// serializes check and insert so two concurrent messages cannot both pass
	mu sync.Mutex
}

func NewContactService(documents *content.Store, window time.Duration) *ContactService {
	return &ContactService{
		documents: documents,
		window:    window,
		now:       time.Now,
	}
}

func (s *ContactService) Submit(ctx context.Context, req ContactRequest) (*ContactResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	email := core.NormalizeEmail(req.Email)

	if req.Name == "" || email == "" || req.Message == "" {
		return nil, badRequest(fmt.Errorf("name, email and message are required"))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, badRequest(fmt.Errorf("invalid email address"))
	}
	if len(req.Message) > maxMessageLength {
		return nil, badRequest(fmt.Errorf("message is longer than %d characters", maxMessageLength))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recent, err := s.documents.Find(ctx, content.SectionMessages, content.Filter{
		Match: map[string]any{"from": email},
		Since: s.now().Add(-s.window),
		Limit: 1,
	})
	if err != nil {
		return nil, internal(fmt.Errorf("checking recent messages: %w", err))
	}
	if len(recent) > 0 {
		log.Ctx(ctx).Info().Str("from", email).Msg("contact.rate_limited")
		return nil, ErrContactRateLimited
	}

	doc, err := s.documents.Create(ctx, content.SectionMessages, map[string]any{
		"name":    req.Name,
		"from":    email,
		"message": req.Message,
	})
	if err != nil {
		return nil, internal(fmt.Errorf("storing message: %w", err))
	}
	return &ContactResponse{ID: doc.ID, CreatedAt: doc.CreatedAt}, nil
}
