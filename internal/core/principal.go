package core

import (
	"strings"
	"time"
)

// Principal represents the authenticated identity of the caller.
// It is produced by an Issuer after verifying credentials or an upstream token.
type Principal struct {
	// ID is the stable subject identifier (e.g. the sub claim).
	ID string `json:"id"`

	// Email is the verified email address. It is what the allow-list is checked against.
	Email string `json:"email"`

	// Issuer is the name of the issuer that verified this principal.
	Issuer string `json:"issuer"`

	// IssuedAt and ExpiresAt are owned by the issuer and only carried along.
	IssuedAt  time.Time `json:"issued_at,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Attributes are the claims extracted from the upstream token.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizedEmail returns the principal's email in comparable form.
func (p *Principal) NormalizedEmail() string {
	if p == nil {
		return ""
	}
	return NormalizeEmail(p.Email)
}

// AuthState is a principal change notification for one session.
// A nil Principal with a nil Err means signed out.
type AuthState struct {
	SessionID string
	Principal *Principal

	// Err is set if the identity provider could not determine the state.
	Err error
}
