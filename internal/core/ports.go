package core

import "context"

// Issuer is responsible for verifying upstream tokens.
// Implementations: OIDC Issuer, Static Issuer.
type Issuer interface {
	// Name returns the identifier of this issuer (as used in config).
	Name() string

	// Verify takes a raw token string, validates it, and returns a Principal.
	Verify(ctx context.Context, token string) (*Principal, error)
}

// PasswordAuthenticator is implemented by issuers that accept email and password.
type PasswordAuthenticator interface {
	Issuer

	// SignIn checks the credentials and returns the Principal.
	// It returns ErrInvalidCredentials if they do not match.
	SignIn(ctx context.Context, email, password string) (*Principal, error)
}
