package issuers

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	"github.com/kmkrofficial/signature/internal/config"
	"github.com/kmkrofficial/signature/internal/core"
)

const OIDCType = "oidc"

type OIDCIssuer struct {
	name      string
	issuerURL string
	provider  *oidc.Provider
	verifier  *oidc.IDTokenVerifier
}

func NewOIDCIssuer(ctx context.Context, cfg config.IssuerConfig) (*OIDCIssuer, error) {
	issuerURL, ok := cfg.Config["issuer_url"].(string)
	if !ok {
		return nil, fmt.Errorf("oidc issuer '%s' missing 'issuer_url'", cfg.Name)
	}
	// expected audience
	clientID, ok := cfg.Config["client_id"].(string)
	if !ok {
		return nil, fmt.Errorf("oidc issuer '%s' missing 'client_id'", cfg.Name)
	}

	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("creating oidc provider for issuer '%s': %w", cfg.Name, err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	return &OIDCIssuer{
		name:      cfg.Name,
		issuerURL: issuerURL,
		provider:  provider,
		verifier:  verifier,
	}, nil
}

func (o *OIDCIssuer) Name() string {
	return o.name
}

func (o *OIDCIssuer) IssuerURL() string {
	return o.issuerURL
}

func (o *OIDCIssuer) Verify(ctx context.Context, token string) (*core.Principal, error) {
	idToken, err := o.verifier.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("oidc verification failed: %w", err)
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting oidc claims: %w", err)
	}

	return principalFromClaims(o.name, idToken.Subject, claims, idToken.IssuedAt, idToken.Expiry)
}

// ExtractIssuerURL extracts the 'iss' claim from a JWT token string without verifying it.
func ExtractIssuerURL(tokenString string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	iss, err := claims.GetIssuer()
	if err != nil {
		return "", fmt.Errorf("invalid 'iss' claim: %w", err)
	}
	if iss == "" {
		return "", fmt.Errorf("token missing 'iss' claim")
	}
	return iss, nil
}
