package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned if no activity record exists for a session.
	ErrNotFound = errors.New("session not found")

	// ErrExpired is returned by Touch if the session exceeded the idle timeout.
	ErrExpired = errors.New("session expired")
)

// Record is the server-held activity record of a signed-in session.
type Record struct {
	// ID is the session identifier carried in the session token.
	ID string `json:"id"`

	PrincipalID string `json:"principal_id"`
	Email       string `json:"email"`
	Issuer      string `json:"issuer"`

	CreatedAt time.Time `json:"created_at"`

	// LastActivity is the last observed activity. It never moves backwards.
	LastActivity time.Time `json:"last_activity"`
}

// Store persists activity records.
// Implementations must make Touch atomic per session, since concurrent requests
// for the same session race on the expiry decision otherwise.
type Store interface {
	// Create stores a new record. An existing record with the same ID is replaced.
	Create(ctx context.Context, rec Record) error

	// Get returns the record without modifying it.
	Get(ctx context.Context, id string) (*Record, error)

	// Touch checks the idle policy and, if the session is still fresh, moves
	// LastActivity forward to now. It returns ErrNotFound or ErrExpired otherwise;
	// an expired record is left in place for the caller to delete.
	Touch(ctx context.Context, id string, now time.Time, idle time.Duration) (*Record, error)

	// Delete removes the record and reports whether one was present.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteExpired removes all records that are idle-expired at now.
	DeleteExpired(ctx context.Context, now time.Time, idle time.Duration) (int64, error)

	Close() error
}

// later returns the later of two times, used to keep LastActivity monotonic.
func later(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
