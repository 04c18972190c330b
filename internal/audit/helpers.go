package audit

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/kmkrofficial/signature/internal/buildinfo"
)

// CreateUserAgent is sent on outgoing requests made on behalf of a task.
func CreateUserAgent(correlationID, task string) string {
	return fmt.Sprintf("Signature/%s (correlation_id=%s; task=%s)",
		buildinfo.Version, correlationID, task)
}

// Fingerprint returns a stable, non-reversible identifier for a secret (e.g. a session token)
// so it can be referenced in audit entries without storing the secret itself.
func Fingerprint(secret string) string {
	hash := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(hash[:])
}

type correlationKey struct{}

// WithCorrelationID stores the request's correlation id in ctx.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
