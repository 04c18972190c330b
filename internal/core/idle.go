package core

import "time"

const (
	// DefaultIdleTimeout is the maximum gap between observed activity before a session is invalidated.
	DefaultIdleTimeout = 6 * time.Hour

	// DefaultCheckInterval is how often a mounted region re-checks the idle timeout.
	DefaultCheckInterval = 60 * time.Second
)

// IsExpired reports whether a session whose last observed activity was at lastActivity
// is idle-expired at now. A zero lastActivity means there is no active session and is
// always expired.
//
// This is the only place the idle comparison is made; the on-demand check, the periodic
// check and every session store call it.
func IsExpired(lastActivity, now time.Time, threshold time.Duration) bool {
	if lastActivity.IsZero() {
		return true
	}
	return now.Sub(lastActivity) > threshold
}
