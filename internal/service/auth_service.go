package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/gate"
	"github.com/kmkrofficial/signature/internal/issuers"
)

// AuthService signs principals in and out and audits the outcome.
type AuthService struct {
	provider *issuers.Provider
	gate     *gate.Gate
	auditor  core.Auditor
}

func NewAuthService(provider *issuers.Provider, g *gate.Gate, auditor core.Auditor) *AuthService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &AuthService{
		provider: provider,
		gate:     g,
		auditor:  auditor,
	}
}

// Login checks email and password. Being signed in does not mean being allowed into the
// admin area; that is decided by the gate on every request.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*issuers.SignedIn, error) {
	entry := core.AuditEntry{
		ID:       audit.CorrelationID(ctx),
		Time:     time.Now(),
		Action:   core.ActionLogin,
		Metadata: map[string]any{"method": "password", "email": core.NormalizeEmail(req.Email)},
	}
	defer s.log(ctx, &entry)

	if req.Email == "" || req.Password == "" {
		entry.Action = core.ActionLoginFailed
		entry.Error = "missing credentials"
		return nil, badRequest(fmt.Errorf("email and password are required"))
	}

	out, err := s.provider.SignIn(ctx, req.Issuer, req.Email, req.Password)
	if err != nil {
		return nil, s.loginFailed(&entry, err)
	}

	entry.Success = true
	entry.Principal = out.Principal
	entry.SessionID = out.SessionID
	return out, nil
}

// LoginWithToken exchanges an upstream ID token for a session.
func (s *AuthService) LoginWithToken(ctx context.Context, token string) (*issuers.SignedIn, error) {
	entry := core.AuditEntry{
		ID:       audit.CorrelationID(ctx),
		Time:     time.Now(),
		Action:   core.ActionLogin,
		Metadata: map[string]any{"method": "token", "token_fingerprint": audit.Fingerprint(token)},
	}
	defer s.log(ctx, &entry)

	if token == "" {
		entry.Action = core.ActionLoginFailed
		entry.Error = "missing token"
		return nil, httpError(http.StatusUnauthorized, fmt.Errorf("missing token"))
	}

	out, err := s.provider.SignInWithToken(ctx, token)
	if err != nil {
		return nil, s.loginFailed(&entry, err)
	}

	entry.Success = true
	entry.Principal = out.Principal
	entry.SessionID = out.SessionID
	return out, nil
}

func (s *AuthService) loginFailed(entry *core.AuditEntry, err error) error {
	entry.Action = core.ActionLoginFailed
	entry.Error = err.Error()

	switch {
	case errors.Is(err, core.ErrInvalidCredentials):
		return httpError(http.StatusUnauthorized, core.ErrInvalidCredentials)
	case errors.Is(err, issuers.ErrNoPasswordIssuer):
		return badRequest(err)
	default:
		return internal(fmt.Errorf("sign-in failed: %w", err))
	}
}

// Logout ends the session the request belongs to.
func (s *AuthService) Logout(ctx context.Context, sessionID string, principal *core.Principal) error {
	if err := s.gate.SignOut(ctx, sessionID, principal); err != nil {
		if errors.Is(err, core.ErrNoPrincipal) {
			return httpError(http.StatusUnauthorized, err)
		}
		return internal(fmt.Errorf("signing out: %w", err))
	}
	return nil
}

func (s *AuthService) log(ctx context.Context, entry *core.AuditEntry) {
	if err := s.auditor.Log(*entry); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to write audit log entry")
	}
}
