package gate

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/core"
)

// PrincipalResolver turns a session token into the principal and session it belongs to.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*core.Principal, string, error)
}

var denialPage = template.Must(template.New("denial").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Access denied</title></head>
<body>
<main>
<h1>Access denied</h1>
<p>You are signed in as <strong>{{.Email}}</strong>, which is not allowed to access this area.</p>
<form method="post" action="{{.SignOutPath}}">
<button type="submit">Sign out</button>
</form>
</main>
</body>
</html>
`))

// DeniedResponse is the JSON body for API clients that were not let through.
type DeniedResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id"`
	Result        Result `json:"result"`
}

// TokenFromRequest extracts the session token from the Authorization header or cookie.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware evaluates the gate for every request and only calls next if authorized.
func (g *Gate) Middleware(resolver PrincipalResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var (
				principal *core.Principal
				sessionID string
				rejected  bool
			)
			if token := TokenFromRequest(r, cookieName); token != "" {
				p, sid, err := resolver.Resolve(ctx, token)
				if err != nil {
					log.Ctx(ctx).Debug().Err(err).Msg("gate.token_rejected")
					rejected = true
				} else {
					principal, sessionID = p, sid
				}
			}

			res := g.Evaluate(ctx, Request{
				Path:      r.URL.Path,
				Principal: principal,
				SessionID: sessionID,
			})
			if rejected || res.Reason == ReasonSessionExpired {
				expireCookie(w, r, cookieName)
			}
			if res.Authorized() {
				if principal != nil {
					l := log.Ctx(ctx).With().Str("sub", principal.ID).Logger()
					ctx = l.WithContext(WithPrincipal(ctx, principal, sessionID))
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			g.WriteDenied(w, r, res)
		})
	}
}

// expireCookie tells the browser to drop a session cookie that no longer resolves.
func expireCookie(w http.ResponseWriter, r *http.Request, name string) {
	if _, err := r.Cookie(name); err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// WriteDenied renders a denied result: JSON for API clients, a redirect or the
// denial page for browsers.
func (g *Gate) WriteDenied(w http.ResponseWriter, r *http.Request, res Result) {
	if wantsJSON(r) {
		status := http.StatusUnauthorized
		if res.Reason == ReasonUnauthorized {
			status = http.StatusForbidden
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		err := json.NewEncoder(w).Encode(DeniedResponse{
			Error:         string(res.Reason),
			CorrelationID: audit.CorrelationID(r.Context()),
			Result:        res,
		})
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
		}
		return
	}

	if res.View == ViewDenial {
		g.RenderDenial(w, r, res.Email, http.StatusForbidden)
		return
	}
	http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
}

// RenderDenial writes the denial page for email.
func (g *Gate) RenderDenial(w http.ResponseWriter, r *http.Request, email string, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := denialPage.Execute(w, struct {
		Email       string
		SignOutPath string
	}{Email: email, SignOutPath: g.opts.SignOutPath})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to render denial page")
	}
}

func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	if strings.Contains(accept, "text/html") {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/v1/")
}
