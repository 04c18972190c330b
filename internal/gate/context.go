package gate

import (
	"context"

	"github.com/kmkrofficial/signature/internal/core"
)

type principalKey struct{}

type identity struct {
	principal *core.Principal
	sessionID string
}

// WithPrincipal stores an authorized principal and its session in ctx.
func WithPrincipal(ctx context.Context, p *core.Principal, sessionID string) context.Context {
	return context.WithValue(ctx, principalKey{}, identity{principal: p, sessionID: sessionID})
}

// PrincipalFromContext returns the principal the gate authorized for this request.
func PrincipalFromContext(ctx context.Context) (*core.Principal, string, bool) {
	id, ok := ctx.Value(principalKey{}).(identity)
	if !ok || id.principal == nil {
		return nil, "", false
	}
	return id.principal, id.sessionID, true
}
