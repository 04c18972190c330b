package issuers

import (
	"context"
	"fmt"

	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/core"
)

// Registry holds the configured issuers in configuration order.
type Registry struct {
	ordered []core.Issuer
	byName  map[string]core.Issuer
}

func NewRegistry(iss ...core.Issuer) *Registry {
	r := &Registry{byName: make(map[string]core.Issuer)}
	for _, i := range iss {
		r.ordered = append(r.ordered, i)
		r.byName[i.Name()] = i
	}
	return r
}

func BuildRegistry(ctx context.Context, cfgs []config.IssuerConfig) (*Registry, error) {
	var list []core.Issuer
	for _, cfg := range cfgs {
		switch cfg.Type {
		case StaticType:
			iss, err := NewStatic(cfg)
			if err != nil {
				return nil, fmt.Errorf("building static issuer %q: %w", cfg.Name, err)
			}
			list = append(list, iss)
		case OIDCType:
			iss, err := NewOIDCIssuer(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("building oidc issuer %q: %w", cfg.Name, err)
			}
			list = append(list, iss)
		default:
			return nil, fmt.Errorf("unknown issuer type %q for issuer %q", cfg.Type, cfg.Name)
		}
	}
	return NewRegistry(list...), nil
}

func (r *Registry) Get(name string) (core.Issuer, bool) {
	iss, ok := r.byName[name]
	return iss, ok
}

// PasswordAuthenticator returns the issuer with the given name if it accepts passwords.
// An empty name selects the first issuer that does.
func (r *Registry) PasswordAuthenticator(name string) (core.PasswordAuthenticator, bool) {
	if name != "" {
		iss, ok := r.byName[name]
		if !ok {
			return nil, false
		}
		pa, ok := iss.(core.PasswordAuthenticator)
		return pa, ok
	}
	for _, iss := range r.ordered {
		if pa, ok := iss.(core.PasswordAuthenticator); ok {
			return pa, true
		}
	}
	return nil, false
}

// IdentifyIssuer finds the issuer for a bearer token. JWTs are matched by their 'iss'
// claim against OIDC issuers; opaque tokens go to the first static issuer.
func (r *Registry) IdentifyIssuer(token string) (core.Issuer, error) {
	if iss, err := ExtractIssuerURL(token); err == nil {
		for _, candidate := range r.ordered {
			if o, ok := candidate.(*OIDCIssuer); ok && o.IssuerURL() == iss {
				return o, nil
			}
		}
		return nil, fmt.Errorf("no issuer configured for '%s'", iss)
	}
	for _, candidate := range r.ordered {
		if s, ok := candidate.(*StaticIssuer); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("cannot identify issuer for opaque token")
}

// Verify identifies the issuer of token and verifies it.
func (r *Registry) Verify(ctx context.Context, token string) (*core.Principal, error) {
	iss, err := r.IdentifyIssuer(token)
	if err != nil {
		return nil, err
	}
	return iss.Verify(ctx, token)
}
