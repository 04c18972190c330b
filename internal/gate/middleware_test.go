package gate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kmkrofficial/signature/internal/core"
)

type fakeResolver map[string]struct {
	principal *core.Principal
	sessionID string
}

func (f fakeResolver) Resolve(_ context.Context, token string) (*core.Principal, string, error) {
	v, ok := f[token]
	if !ok {
		return nil, "", errors.New("bad token")
	}
	return v.principal, v.sessionID, nil
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t, "a@x.com")
	admin := f.seed(t, "s-admin", "a@x.com", time.Minute)
	other := f.seed(t, "s-other", "b@x.com", time.Minute)
	stale := f.seed(t, "s-stale", "a@x.com", 7*time.Hour)

	resolver := fakeResolver{
		"admin": {admin, "s-admin"},
		"other": {other, "s-other"},
		"stale": {stale, "s-stale"},
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, sid, ok := PrincipalFromContext(r.Context())
		if ok {
			w.Header().Set("X-Session", sid)
			_, _ = w.Write([]byte(p.Email))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
	h := f.gate.Middleware(resolver, "sig")(next)

	tests := []struct {
		name       string
		path       string
		cookie     string
		bearer     string
		accept     string
		wantStatus int
		wantLoc    string
		wantBody   string
	}{
		{"Login Page Is Open", "/admin/login", "", "", "text/html", http.StatusOK, "", "anonymous"},
		{"No Session Redirects", "/admin/dashboard", "", "", "text/html", http.StatusSeeOther, "/admin/login", ""},
		{"Bad Token Redirects", "/admin", "garbage", "", "text/html", http.StatusSeeOther, "/admin/login", ""},
		{"Admin Passes", "/admin", "admin", "", "text/html", http.StatusOK, "", "a@x.com"},
		{"Bearer Passes", "/api/skills", "", "admin", "", http.StatusOK, "", "a@x.com"},
		{"Other Sees Denial", "/admin", "other", "", "text/html", http.StatusForbidden, "", "b@x.com"},
		{"Other Gets JSON", "/api/skills", "other", "", "application/json", http.StatusForbidden, "", `"reason":"unauthorized"`},
		{"Stale Redirects", "/admin", "stale", "", "text/html", http.StatusSeeOther, "/admin/login", ""},
		{"No Session JSON", "/api/skills", "", "", "", http.StatusUnauthorized, "", `"redirect":"/admin/login"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "sig", Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			}
			if tt.wantBody != "" {
				assert.True(t, strings.Contains(rec.Body.String(), tt.wantBody), "body: %s", rec.Body.String())
			}
		})
	}
}

func TestMiddleware_ExpiresDeadCookie(t *testing.T) {
	f := newFixture(t, "a@x.com")
	admin := f.seed(t, "s-admin", "a@x.com", time.Minute)
	stale := f.seed(t, "s-stale", "a@x.com", 7*time.Hour)
	resolver := fakeResolver{
		"admin": {admin, "s-admin"},
		"stale": {stale, "s-stale"},
	}
	h := f.gate.Middleware(resolver, "sig")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(path, cookie string) *http.Response {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept", "text/html")
		req.AddCookie(&http.Cookie{Name: "sig", Value: cookie})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Result()
	}
	cleared := func(res *http.Response) bool {
		for _, c := range res.Cookies() {
			if c.Name == "sig" && c.MaxAge < 0 {
				return true
			}
		}
		return false
	}

	tests := []struct {
		name        string
		path        string
		cookie      string
		wantStatus  int
		wantCleared bool
	}{
		{"Valid Session Keeps Cookie", "/admin", "admin", http.StatusOK, false},
		{"Idle Session Drops Cookie", "/admin", "stale", http.StatusSeeOther, true},
		{"Rejected Token Drops Cookie", "/admin", "garbage", http.StatusSeeOther, true},
		{"Login Page Drops Rejected Cookie", "/admin/login", "garbage", http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := serve(tt.path, tt.cookie)
			defer res.Body.Close()
			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantCleared, cleared(res))
		})
	}
}

func TestDenialPageEscapesEmail(t *testing.T) {
	f := newFixture(t, "a@x.com")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/unauthorized", nil)

	f.gate.RenderDenial(rec, req, "<script>@x.com", http.StatusForbidden)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<script>")
	assert.Contains(t, rec.Body.String(), `action="/v1/auth/logout"`)
}
