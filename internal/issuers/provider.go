package issuers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/session"
)

var ErrNoPasswordIssuer = errors.New("no issuer accepts password sign-in")

// SignedIn is the outcome of a successful sign-in.
type SignedIn struct {
	Principal *core.Principal `json:"principal"`
	SessionID string          `json:"session_id"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Provider is the identity provider used by the gate and the HTTP layer.
// It turns verified credentials into sessions and publishes principal changes.
type Provider struct {
	registry *Registry
	sessions session.Store
	signer   *session.TokenSigner
	hub      *Hub
	now      func() time.Time
}

func NewProvider(registry *Registry, sessions session.Store, signer *session.TokenSigner, hub *Hub) *Provider {
	if hub == nil {
		hub = NewHub()
	}
	return &Provider{
		registry: registry,
		sessions: sessions,
		signer:   signer,
		hub:      hub,
		now:      time.Now,
	}
}

func (p *Provider) Hub() *Hub {
	return p.hub
}

// SignIn checks email and password against the named issuer (or the first password
// issuer if name is empty) and starts a session.
func (p *Provider) SignIn(ctx context.Context, issuerName, email, password string) (*SignedIn, error) {
	auth, ok := p.registry.PasswordAuthenticator(issuerName)
	if !ok {
		return nil, ErrNoPasswordIssuer
	}
	principal, err := auth.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return p.start(ctx, principal)
}

// SignInWithToken verifies an upstream token (e.g. an OIDC ID token) and starts a session.
func (p *Provider) SignInWithToken(ctx context.Context, token string) (*SignedIn, error) {
	principal, err := p.registry.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidCredentials, err)
	}
	return p.start(ctx, principal)
}

func (p *Provider) start(ctx context.Context, principal *core.Principal) (*SignedIn, error) {
	now := p.now()
	rec := session.Record{
		ID:           uuid.NewString(),
		PrincipalID:  principal.ID,
		Email:        principal.Email,
		Issuer:       principal.Issuer,
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := p.sessions.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	token, exp, err := p.signer.Issue(rec)
	if err != nil {
		_, _ = p.sessions.Delete(ctx, rec.ID)
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("session_id", rec.ID).
		Str("issuer", principal.Issuer).
		Msg("session.started")

	p.hub.Publish(core.AuthState{SessionID: rec.ID, Principal: principal})

	return &SignedIn{
		Principal: principal,
		SessionID: rec.ID,
		Token:     token,
		ExpiresAt: exp,
	}, nil
}

// SignOut ends the identity of a session for all subscribers.
// It does not touch the activity record; removing it is up to the caller.
func (p *Provider) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return core.ErrNoPrincipal
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("signing out: %w", err)
	}
	p.hub.Publish(core.AuthState{SessionID: sessionID})
	return nil
}

// Resolve verifies a session token and returns the principal and session it belongs to.
// A token whose session was signed out or expired no longer resolves, even if its
// signature is still valid.
func (p *Provider) Resolve(ctx context.Context, token string) (*core.Principal, string, error) {
	claims, err := p.signer.Parse(token)
	if err != nil {
		return nil, "", err
	}
	rec, err := p.sessions.Get(ctx, claims.SessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return nil, "", fmt.Errorf("%w: session ended", session.ErrInvalidToken)
	case err != nil:
		return nil, "", fmt.Errorf("looking up session: %w", err)
	case rec.PrincipalID != claims.Subject:
		return nil, "", fmt.Errorf("%w: session belongs to another principal", session.ErrInvalidToken)
	}
	principal := &core.Principal{
		ID:     claims.Subject,
		Email:  claims.Email,
		Issuer: claims.OriginIssuer,
	}
	if claims.IssuedAt != nil {
		principal.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, claims.SessionID, nil
}

// Subscribe streams principal changes for a session.
// The current state is delivered first if the session is known and the token valid.
func (p *Provider) Subscribe(ctx context.Context, token string) (<-chan core.AuthState, func(), error) {
	principal, sessionID, err := p.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := p.hub.Subscribe(sessionID)
	p.hub.Publish(core.AuthState{SessionID: sessionID, Principal: principal})
	return ch, cancel, nil
}
