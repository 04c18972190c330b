package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/kmkrofficial/signature/internal/audit"
	"github.com/kmkrofficial/signature/internal/logging"
	"github.com/kmkrofficial/signature/internal/session"
)

const (
	SessionSweepTask = "session-sweep"
	KeepAliveTask    = "keep-alive"
)

// SessionSweep deletes activity records that exceeded the idle timeout.
// The gate never relies on it; it only keeps the store small.
func SessionSweep(store session.Store, idle time.Duration, now func() time.Time) TaskFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, logger logging.InternalLogger) (Outcome, error) {
		logger.Info("removing sessions idle for more than %s", idle)
		n, err := store.DeleteExpired(ctx, now(), idle)
		if err != nil {
			return Outcome{Affected: n}, fmt.Errorf("deleting expired sessions: %w", err)
		}
		return Outcome{
			Summary:  fmt.Sprintf("removed %d expired session(s)", n),
			Affected: n,
		}, nil
	}
}

// KeepAlive pings url so that a sleeping upstream stays awake.
func KeepAlive(client *http.Client, url string) TaskFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return func(ctx context.Context, logger logging.InternalLogger) (Outcome, error) {
		if url == "" {
			return Outcome{}, fmt.Errorf("keep-alive url is not configured")
		}

		correlationID := xid.New().String()
		logger.Info("pinging keep-alive url %s (correlation_id=%s)", url, correlationID)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Outcome{}, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", audit.CreateUserAgent(correlationID, KeepAliveTask))

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			return Outcome{}, fmt.Errorf("ping failed: %w", err)
		}
		defer resp.Body.Close()
		took := time.Since(start).Round(time.Millisecond)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return Outcome{Summary: fmt.Sprintf("%s answered %d", url, resp.StatusCode)},
				fmt.Errorf("ping failed with status: %d", resp.StatusCode)
		}
		return Outcome{Summary: fmt.Sprintf("%s answered %d in %s", url, resp.StatusCode, took)}, nil
	}
}
