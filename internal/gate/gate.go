package gate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/session"
)

const DefaultSignOutPath = "/v1/auth/logout"

// SignOuter ends a session's identity at the identity provider.
type SignOuter interface {
	SignOut(ctx context.Context, sessionID string) error
}

type Options struct {
	AllowList AllowList

	IdleTimeout   time.Duration
	CheckInterval time.Duration
	VerifyTimeout time.Duration

	LoginPath        string
	UnauthorizedPath string

	// SignOutPath is where the denial page's sign-out form posts to.
	SignOutPath string

	Now func() time.Time
}

// OptionsFromConfig builds gate options from the server configuration.
func OptionsFromConfig(cfg config.GateConfig) Options {
	return Options{
		AllowList:        NewAllowList(cfg.AdminEmails),
		IdleTimeout:      cfg.IdleTimeout,
		CheckInterval:    cfg.CheckInterval,
		VerifyTimeout:    cfg.VerifyTimeout,
		LoginPath:        cfg.LoginPath,
		UnauthorizedPath: cfg.UnauthorizedPath,
	}
}

func (o *Options) applyDefaults() {
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = core.DefaultIdleTimeout
	}
	if o.CheckInterval <= 0 {
		o.CheckInterval = core.DefaultCheckInterval
	}
	if o.VerifyTimeout <= 0 {
		o.VerifyTimeout = config.DefaultVerifyTimeout
	}
	if o.LoginPath == "" {
		o.LoginPath = config.DefaultLoginPath
	}
	if o.UnauthorizedPath == "" {
		o.UnauthorizedPath = config.DefaultUnauthorizedPath
	}
	if o.SignOutPath == "" {
		o.SignOutPath = DefaultSignOutPath
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Request is a single evaluation input.
type Request struct {
	Path      string
	Principal *core.Principal
	SessionID string
}

// Gate decides whether a principal may see the admin area.
type Gate struct {
	opts     Options
	sessions session.Store
	provider SignOuter
	auditor  core.Auditor
}

func New(sessions session.Store, provider SignOuter, auditor core.Auditor, opts Options) *Gate {
	opts.applyDefaults()
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &Gate{
		opts:     opts,
		sessions: sessions,
		provider: provider,
		auditor:  auditor,
	}
}

func (g *Gate) Options() Options {
	return g.opts
}

// Evaluate runs the full decision for one request.
// Checks run in a fixed order: login path, principal presence, allow-list, idle timeout.
func (g *Gate) Evaluate(ctx context.Context, req Request) Result {
	if req.Path == g.opts.LoginPath {
		return Result{Decision: Authorized, Reason: ReasonLoginPath, View: ViewChildren}
	}

	if req.Principal == nil {
		return g.unauthenticated()
	}

	email := req.Principal.NormalizedEmail()
	if !g.opts.AllowList.Allows(email) {
		log.Ctx(ctx).Warn().
			Str("email", email).
			Str("path", req.Path).
			Msg("gate.denied")
		g.audit(ctx, core.AuditEntry{
			Action:    core.ActionGateDenied,
			Principal: req.Principal,
			SessionID: req.SessionID,
			Path:      req.Path,
			Error:     string(ReasonUnauthorized),
		})
		return Result{
			Decision: Denied,
			Reason:   ReasonUnauthorized,
			View:     ViewDenial,
			Redirect: g.opts.UnauthorizedPath,
			Email:    strings.TrimSpace(req.Principal.Email),
		}
	}

	// the record must belong to the principal before it counts as activity
	rec, err := g.Session(ctx, req.SessionID)
	if err == nil && rec.PrincipalID != req.Principal.ID {
		log.Ctx(ctx).Warn().
			Str("session_id", req.SessionID).
			Msg("gate.session_mismatch")
		return g.unauthenticated()
	}
	if err == nil {
		_, err = g.touch(ctx, req.SessionID)
	}
	switch {
	case err == nil:
		return Result{Decision: Authorized, Reason: ReasonFresh, View: ViewChildren}
	case errors.Is(err, session.ErrExpired):
		return g.expire(ctx, req.SessionID, req.Principal, req.Path)
	case errors.Is(err, session.ErrNotFound):
		return g.expiredResult()
	default:
		return g.storeFailure(ctx, req, err)
	}
}

func (g *Gate) touch(ctx context.Context, sessionID string) (*session.Record, error) {
	if sessionID == "" {
		return nil, session.ErrNotFound
	}
	return g.sessions.Touch(ctx, sessionID, g.opts.Now(), g.opts.IdleTimeout)
}

// RecordActivity moves the session's last activity to now if it is still fresh.
// An expired or missing session is never revived; the error says which.
func (g *Gate) RecordActivity(ctx context.Context, sessionID string) error {
	_, err := g.touch(ctx, sessionID)
	return err
}

// Session returns the activity record without refreshing it.
func (g *Gate) Session(ctx context.Context, sessionID string) (*session.Record, error) {
	if sessionID == "" {
		return nil, session.ErrNotFound
	}
	return g.sessions.Get(ctx, sessionID)
}

// Check is the periodic idle check. Unlike Evaluate it does not count as activity.
func (g *Gate) Check(ctx context.Context, sessionID string, principal *core.Principal) Result {
	if principal == nil {
		return g.unauthenticated()
	}
	rec, err := g.Session(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return g.expiredResult()
	case err != nil:
		return g.storeFailure(ctx, Request{SessionID: sessionID, Principal: principal}, err)
	}
	if core.IsExpired(rec.LastActivity, g.opts.Now(), g.opts.IdleTimeout) {
		return g.expire(ctx, sessionID, principal, "")
	}
	return Result{Decision: Authorized, Reason: ReasonFresh, View: ViewChildren}
}

// SignOut ends a session on request of its owner.
func (g *Gate) SignOut(ctx context.Context, sessionID string, principal *core.Principal) error {
	if sessionID == "" {
		return core.ErrNoPrincipal
	}
	signOutErr := g.provider.SignOut(ctx, sessionID)
	if _, err := g.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	g.audit(ctx, core.AuditEntry{
		Action:    core.ActionLogout,
		Principal: principal,
		SessionID: sessionID,
		Success:   signOutErr == nil,
		Error:     errString(signOutErr),
	})
	return signOutErr
}

// expire forces the sign-out of an idle session. Only the caller that removes the
// record signs out and audits; everyone else gets the same result without side effects.
// A session whose record is already gone was signed out by whoever removed it.
func (g *Gate) expire(ctx context.Context, sessionID string, principal *core.Principal, path string) Result {
	result := g.expiredResult()

	deleted, err := g.sessions.Delete(ctx, sessionID)
	if err != nil {
		// the record may still be there; signing out keeps the outcome fail closed
		log.Ctx(ctx).Error().Err(err).
			Str("session_id", sessionID).
			Msg("session.delete_failed")
	} else if !deleted {
		return result
	}

	signOutErr := g.provider.SignOut(ctx, sessionID)
	if signOutErr != nil {
		log.Ctx(ctx).Error().Err(signOutErr).
			Str("session_id", sessionID).
			Msg("session.sign_out_failed")
	}

	log.Ctx(ctx).Info().
		Str("session_id", sessionID).
		Str("email", principal.NormalizedEmail()).
		Msg("session.expired")

	g.audit(ctx, core.AuditEntry{
		Action:    core.ActionGateExpired,
		Principal: principal,
		SessionID: sessionID,
		Path:      path,
		Success:   signOutErr == nil,
		Error:     errString(signOutErr),
	})
	return result
}

func (g *Gate) expiredResult() Result {
	return Result{
		Decision: Denied,
		Reason:   ReasonSessionExpired,
		View:     ViewLogin,
		Redirect: g.opts.LoginPath,
	}
}

// ProviderFailure is the fail-closed result used when the identity provider does not
// answer or reports an error.
func (g *Gate) ProviderFailure(ctx context.Context, sessionID string, cause error) Result {
	log.Ctx(ctx).Error().Err(cause).
		Str("session_id", sessionID).
		Msg("gate.provider_failed")
	g.audit(ctx, core.AuditEntry{
		Action:    core.ActionProviderFailed,
		SessionID: sessionID,
		Error:     errString(cause),
	})
	return Result{
		Decision: Denied,
		Reason:   ReasonProviderFailure,
		View:     ViewLogin,
		Redirect: g.opts.LoginPath,
	}
}

func (g *Gate) storeFailure(ctx context.Context, req Request, err error) Result {
	log.Ctx(ctx).Error().Err(err).
		Str("session_id", req.SessionID).
		Msg("session.store_failed")
	return Result{
		Decision: Denied,
		Reason:   ReasonProviderFailure,
		View:     ViewLogin,
		Redirect: g.opts.LoginPath,
	}
}

func (g *Gate) unauthenticated() Result {
	return Result{
		Decision: Denied,
		Reason:   ReasonUnauthenticated,
		View:     ViewLogin,
		Redirect: g.opts.LoginPath,
	}
}

func (g *Gate) audit(ctx context.Context, entry core.AuditEntry) {
	entry.ID = audit.CorrelationID(ctx)
	entry.Time = g.opts.Now()
	if err := g.auditor.Log(entry); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("audit.write_failed")
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
