package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/api/presenter"
	"github.com/kmkrofficial/signature/internal/core"
	"github.com/kmkrofficial/signature/internal/gate"
	"github.com/kmkrofficial/signature/internal/issuers"
	"github.com/kmkrofficial/signature/internal/service"
	"github.com/kmkrofficial/signature/internal/session"
)

type LoginResponse struct {
	Token     string          `json:"token"`
	SessionID string          `json:"session_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Principal *core.Principal `json:"principal"`
}

type MeResponse struct {
	Principal    *core.Principal `json:"principal"`
	SessionID    string          `json:"session_id"`
	LastActivity time.Time       `json:"last_activity"`
	IdleTimeout  string          `json:"idle_timeout"`
}

type ActivityPayload struct {
	Kind string `json:"kind"`
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// handleLogin signs in with email and password. Browsers posting the login form get the
// session cookie and are sent to the admin area; API clients get the token as JSON.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var req service.LoginRequest
	form := isForm(r)
	if form {
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
		req.Issuer = r.FormValue("issuer")
	} else if err := DecodePayload(r, &req, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode login payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	out, err := s.authService.Login(ctx, req)
	if err != nil {
		if form {
			http.Redirect(w, r, s.gate.Options().LoginPath+"?error=invalid", http.StatusSeeOther)
			return
		}
		presenter.Err(w, r, err, "login failed")
		return
	}

	logger.Info().Str("sub", out.Principal.ID).Msg("auth.login")
	s.setSessionCookie(w, out)
	if form {
		http.Redirect(w, r, AdminRoot, http.StatusSeeOther)
		return
	}
	presenter.JSON(w, r, loginResponse(out), http.StatusOK)
}

// handleTokenLogin exchanges an upstream ID token from the Authorization header for a session.
func (s *Server) handleTokenLogin(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer"))
	out, err := s.authService.LoginWithToken(r.Context(), token)
	if err != nil {
		presenter.Err(w, r, err, "login failed")
		return
	}
	s.setSessionCookie(w, out)
	presenter.JSON(w, r, loginResponse(out), http.StatusOK)
}

// handleLogout ends the caller's session. It is reachable for principals that are not on
// the allow-list, since the denial page offers to sign out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := gate.TokenFromRequest(r, s.cookie.Name)
	principal, sessionID, err := s.provider.Resolve(ctx, token)
	if err != nil && !errors.Is(err, session.ErrInvalidToken) {
		presenter.Err(w, r, err, "logout failed")
		return
	}

	if err == nil {
		if err := s.authService.Logout(ctx, sessionID, principal); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("auth.logout_failed")
		}
	}
	s.clearSessionCookie(w)

	browser := !strings.Contains(r.Header.Get("Accept"), "application/json") && r.Header.Get("Authorization") == ""
	if isForm(r) || browser {
		http.Redirect(w, r, s.gate.Options().LoginPath, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, sessionID, ok := gate.PrincipalFromContext(ctx)
	if !ok {
		presenter.Error(w, r, "not signed in", http.StatusUnauthorized)
		return
	}
	resp := MeResponse{
		Principal:   principal,
		SessionID:   sessionID,
		IdleTimeout: s.gate.Options().IdleTimeout.String(),
	}
	if rec, err := s.gate.Session(ctx, sessionID); err == nil {
		resp.LastActivity = rec.LastActivity
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}

// handleActivity records a user activity signal (pointer, key or click).
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, sessionID, ok := gate.PrincipalFromContext(ctx)
	if !ok {
		presenter.Error(w, r, "not signed in", http.StatusUnauthorized)
		return
	}

	var payload ActivityPayload
	if err := DecodePayload(r, &payload, true); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.Kind == "" {
		payload.Kind = gate.ActivityPointer
	}
	if !gate.IsActivityKind(payload.Kind) {
		presenter.Error(w, r, "unknown activity kind", http.StatusBadRequest)
		return
	}

	if s.regions.activity(sessionID, payload.Kind) {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	// no open region for this session; record directly
	if err := s.gate.RecordActivity(ctx, sessionID); err != nil {
		if errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrNotFound) {
			presenter.Error(w, r, "session expired", http.StatusUnauthorized)
			return
		}
		presenter.Err(w, r, err, "recording activity failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, out *issuers.SignedIn) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    out.Token,
		Path:     "/",
		Expires:  out.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func loginResponse(out *issuers.SignedIn) LoginResponse {
	return LoginResponse{
		Token:     out.Token,
		SessionID: out.SessionID,
		ExpiresAt: out.ExpiresAt,
		Principal: out.Principal,
	}
}
