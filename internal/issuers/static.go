package issuers

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/crypto/bcrypt"

	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/core"
)

const StaticType = "static"

var _ core.PasswordAuthenticator = (*StaticIssuer)(nil)

// dummyHash is compared against when the email is unknown, so unknown and known
// accounts take about the same time to reject.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("signature-dummy-password"), bcrypt.DefaultCost)

// StaticUser is a locally configured account.
type StaticUser struct {
	ID           string `mapstructure:"id"`
	Email        string `mapstructure:"email"`
	PasswordHash string `mapstructure:"password_hash"`
}

// StaticConfig is decoded from the inline issuer options.
type StaticConfig struct {
	Users []StaticUser `mapstructure:"users"`

	// Tokens maps static API tokens to an email of one of the users.
	Tokens map[string]string `mapstructure:"tokens"`
}

type StaticIssuer struct {
	name   string
	users  map[string]StaticUser // normalized email -> user
	tokens map[string]string     // token -> normalized email
}

func NewStatic(cfg config.IssuerConfig) (*StaticIssuer, error) {
	var conf StaticConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &conf,
	})
	if err != nil {
		return nil, fmt.Errorf("creating decoder for static issuer '%s': %w", cfg.Name, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return nil, fmt.Errorf("decoding config for static issuer '%s': %w", cfg.Name, err)
	}
	return NewStaticFromUsers(cfg.Name, conf)
}

func NewStaticFromUsers(name string, conf StaticConfig) (*StaticIssuer, error) {
	s := &StaticIssuer{
		name:   name,
		users:  make(map[string]StaticUser, len(conf.Users)),
		tokens: make(map[string]string, len(conf.Tokens)),
	}
	for idx, u := range conf.Users {
		email := core.NormalizeEmail(u.Email)
		if email == "" {
			return nil, fmt.Errorf("static issuer '%s': user at index %d has no email", name, idx)
		}
		if u.PasswordHash == "" {
			return nil, fmt.Errorf("static issuer '%s': user '%s' has no password_hash", name, email)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return nil, fmt.Errorf("static issuer '%s': user '%s' has an invalid password_hash: %w", name, email, err)
		}
		if u.ID == "" {
			u.ID = email
		}
		s.users[email] = u
	}
	for token, email := range conf.Tokens {
		email = core.NormalizeEmail(email)
		if _, ok := s.users[email]; !ok {
			return nil, fmt.Errorf("static issuer '%s': token references unknown user '%s'", name, email)
		}
		s.tokens[token] = email
	}
	return s, nil
}

func (s *StaticIssuer) Name() string {
	return s.name
}

// Verify accepts one of the configured static API tokens.
func (s *StaticIssuer) Verify(_ context.Context, token string) (*core.Principal, error) {
	for candidate, email := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(token)) == 1 {
			return s.principal(s.users[email]), nil
		}
	}
	return nil, fmt.Errorf("invalid static token")
}

func (s *StaticIssuer) SignIn(_ context.Context, email, password string) (*core.Principal, error) {
	user, ok := s.users[core.NormalizeEmail(email)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, core.ErrInvalidCredentials
	}
	return s.principal(user), nil
}

func (s *StaticIssuer) principal(u StaticUser) *core.Principal {
	return &core.Principal{
		ID:     u.ID,
		Email:  u.Email,
		Issuer: s.name,
	}
}

// HashPassword creates a bcrypt hash suitable for a static user's password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
