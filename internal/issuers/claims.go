package issuers

import (
	"fmt"
	"time"

	"github.com/kmkrofficial/signature/internal/core"
)

// principalFromClaims builds a Principal from verified token claims.
// The email must be present and, if the issuer says so, verified.
func principalFromClaims(
	issuer, subject string,
	claims map[string]any,
	issuedAt, expiresAt time.Time,
) (*core.Principal, error) {
	if subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("token has no 'email' claim")
	}
	if verified, present := claims["email_verified"]; present {
		if b, ok := verified.(bool); !ok || !b {
			return nil, fmt.Errorf("email '%s' is not verified", email)
		}
	}

	return &core.Principal{
		ID:         subject,
		Email:      email,
		Issuer:     issuer,
		IssuedAt:   issuedAt,
		ExpiresAt:  expiresAt,
		Attributes: claims,
	}, nil
}
