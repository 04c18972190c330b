package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "signature"

var ErrInvalidToken = errors.New("invalid session token")

// Claims are carried in the signed session token.
// The token only identifies the session; idle state lives in the Store.
type Claims struct {
	jwt.RegisteredClaims

	SessionID    string `json:"sid"`
	Email        string `json:"email"`
	OriginIssuer string `json:"origin_iss"`
}

// TokenSigner issues and verifies HS256 session tokens.
type TokenSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenSigner(key []byte, ttl time.Duration) *TokenSigner {
	return &TokenSigner{key: key, ttl: ttl, now: time.Now}
}

// Issue signs a token for rec. It returns the token and its expiry.
func (s *TokenSigner) Issue(rec Record) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   rec.PrincipalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		SessionID:    rec.ID,
		Email:        rec.Email,
		OriginIssuer: rec.Issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies the signature, expiry and issuer of a session token.
func (s *TokenSigner) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.key, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing sid", ErrInvalidToken)
	}
	return &claims, nil
}
