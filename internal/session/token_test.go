package session

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestTokenSigner_RoundTrip(t *testing.T) {
	s := NewTokenSigner(testKey, time.Hour)

	tok, exp, err := s.Issue(Record{ID: "sid-1", PrincipalID: "user-1", Email: "a@x.com", Issuer: "local"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.SessionID != "sid-1" || claims.Subject != "user-1" || claims.Email != "a@x.com" || claims.OriginIssuer != "local" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestTokenSigner_Rejects(t *testing.T) {
	s := NewTokenSigner(testKey, time.Hour)
	good, _, err := s.Issue(Record{ID: "sid-1", PrincipalID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewTokenSigner(testKey, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue(Record{ID: "sid-2"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewTokenSigner([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	forged, _, err := other.Issue(Record{ID: "sid-3"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "x", "iss": tokenIssuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	tests := map[string]string{
		"Tampered":    good + "x",
		"Expired":     old,
		"Wrong Key":   forged,
		"Unsigned":    unsigned,
		"Not A Token": "hello",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(tok)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
