package client

import (
	"context"
	"encoding/json"

	"github.com/kmkrofficial/signature/internal/api"
)

// Portfolio fetches the public portfolio aggregate.
func (c *Client) Portfolio(ctx context.Context) (map[string]json.RawMessage, string, error) {
	var resp map[string]json.RawMessage
	correlation, err := c.get(ctx, c.url().
		setPath(api.PortfolioRoute).
		build(), &resp)
	return resp, correlation, err
}

// ListSection returns the documents of a content section.
func (c *Client) ListSection(ctx context.Context, section string) ([]map[string]any, string, error) {
	var resp []map[string]any
	correlation, err := c.get(ctx, c.url().
		setPath(api.SectionRoute).
		setPathParam("section", section).
		build(), &resp)
	return resp, correlation, err
}
