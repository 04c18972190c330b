package core

import "errors"

var (
	// ErrInvalidCredentials is returned by a PasswordAuthenticator if the email is unknown
	// or the password does not match. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoPrincipal is returned when a request carries no (valid) identity.
	ErrNoPrincipal = errors.New("no principal")
)
