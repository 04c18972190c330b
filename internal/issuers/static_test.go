package issuers

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/core"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	return string(hash)
}

func newTestStatic(t *testing.T) *StaticIssuer {
	t.Helper()
	iss, err := NewStatic(config.IssuerConfig{
		Name: "local",
		Type: StaticType,
		Config: map[string]any{
			"users": []any{
				map[string]any{
					"id":            "u-1",
					"email":         "Admin@Example.com",
					"password_hash": mustHash(t, "correct horse"),
				},
			},
			"tokens": map[string]any{
				"api-token-1": "admin@example.com",
			},
		},
	})
	if err != nil {
		t.Fatalf("NewStatic() error = %v", err)
	}
	return iss
}

func TestStaticIssuer_SignIn(t *testing.T) {
	iss := newTestStatic(t)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  bool
	}{
		{"Valid", "admin@example.com", "correct horse", false},
		{"Email Case And Whitespace", "  ADMIN@example.com ", "correct horse", false},
		{"Wrong Password", "admin@example.com", "battery staple", true},
		{"Unknown Email", "nobody@example.com", "correct horse", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := iss.SignIn(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidCredentials) {
					t.Fatalf("expected ErrInvalidCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.ID != "u-1" || p.Issuer != "local" {
				t.Errorf("unexpected principal: %+v", p)
			}
		})
	}
}

func TestStaticIssuer_Verify(t *testing.T) {
	iss := newTestStatic(t)

	p, err := iss.Verify(context.Background(), "api-token-1")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if p.NormalizedEmail() != "admin@example.com" {
		t.Errorf("expected admin@example.com, got %s", p.Email)
	}

	if _, err := iss.Verify(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown token")
	}
}

func TestNewStatic_Invalid(t *testing.T) {
	tests := []struct {
		name string
		conf map[string]any
	}{
		{"Missing Email", map[string]any{
			"users": []any{map[string]any{"password_hash": "$2a$04$abc"}},
		}},
		{"Missing Hash", map[string]any{
			"users": []any{map[string]any{"email": "a@b.c"}},
		}},
		{"Bad Hash", map[string]any{
			"users": []any{map[string]any{"email": "a@b.c", "password_hash": "plaintext"}},
		}},
		{"Token For Unknown User", map[string]any{
			"tokens": map[string]any{"t": "ghost@example.com"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(config.IssuerConfig{Name: "x", Type: StaticType, Config: tt.conf})
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}
