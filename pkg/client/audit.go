package client

import (
	"context"

	"github.com/kmkrofficial/signature/internal/api"
	"github.com/kmkrofficial/signature/internal/core"
)

type ListAuditsOpts struct {
	Limit uint

	CorrelationID string
	PrincipalID   string
	Action        string

	// Filter is an expression evaluated on the server against each entry.
	Filter string
}

// ListAudits retrieves the latest audit entries from the server.
func (c *Client) ListAudits(ctx context.Context, opts ListAuditsOpts) ([]core.AuditEntry, string, error) {
	ub := c.url().setPath(api.ListAuditsRoute)
	if opts.Limit > 0 {
		ub = ub.addQueryParam("limit", opts.Limit)
	}
	if opts.CorrelationID != "" {
		ub = ub.addQueryParam("correlation_id", opts.CorrelationID)
	}
	if opts.PrincipalID != "" {
		ub = ub.addQueryParam("principal_id", opts.PrincipalID)
	}
	if opts.Action != "" {
		ub = ub.addQueryParam("action", opts.Action)
	}
	if opts.Filter != "" {
		ub = ub.addQueryParam("filter", opts.Filter)
	}
	var resp []core.AuditEntry
	correlation, err := c.get(ctx, ub.build(), &resp)
	return resp, correlation, err
}
