package client

import (
	"context"

	"github.com/kmkrofficial/signature/internal/api"
	"github.com/kmkrofficial/signature/internal/service"
)

// Login signs in with email and password and returns the session token.
// The client does not start using the token; create a new client with WithAuthToken.
func (c *Client) Login(ctx context.Context, issuer, email, password string) (*api.LoginResponse, string, error) {
	var resp api.LoginResponse
	correlation, err := c.post(ctx, c.url().
		setPath(api.LoginRoute).
		build(), service.LoginRequest{
		Issuer:   issuer,
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp, correlation, nil
}

// Me returns the principal behind the configured token. It fails if the session
// expired or the principal is not on the allow-list.
func (c *Client) Me(ctx context.Context) (*api.MeResponse, string, error) {
	var resp api.MeResponse
	correlation, err := c.get(ctx, c.url().
		setPath(api.MeRoute).
		build(), &resp)
	if err != nil {
		return nil, correlation, err
	}
	return &resp, correlation, nil
}

func (c *Client) Logout(ctx context.Context) (string, error) {
	return c.post(ctx, c.url().
		setPath(api.LogoutRoute).
		build(), nil, nil)
}
