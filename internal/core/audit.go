package core

import "time"

// Audit actions
const (
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionLogout         = "auth.logout"
	ActionGateDenied     = "gate.denied"
	ActionGateExpired    = "gate.expired"
	ActionProviderFailed = "gate.provider_failed"
	ActionContentWrite   = "content.write"
	ActionContentDelete  = "content.delete"
	ActionMediaUpload    = "media.upload"
	ActionMediaDelete    = "media.delete"
)

type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID)
	ID string `json:"id"`

	// Time is the timestamp of the event
	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "auth.login", "gate.denied")
	Action string `json:"action"`

	// Principal identifies who made the request, if known
	Principal *Principal `json:"principal,omitempty"`

	// SessionID is the server-side session the event belongs to
	SessionID string `json:"session_id,omitempty"`

	// Path is the requested path, if the event originates from a request
	Path string `json:"path,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Metadata contains action specific details
	Metadata map[string]any `json:"metadata,omitempty"`
}

type Auditor interface {
	Log(entry AuditEntry) error
	GetRecent(limit int) ([]AuditEntry, error)
	Find(filter func(entry AuditEntry) bool, limit int) ([]AuditEntry, error)
	Close() error
}
