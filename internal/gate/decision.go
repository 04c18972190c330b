package gate

import "fmt"

// Decision is the outcome of evaluating the gate.
type Decision int

const (
	Pending Decision = iota
	Authorized
	Denied
)

func (d Decision) String() string {
	switch d {
	case Pending:
		return "pending"
	case Authorized:
		return "authorized"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decision) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*d = Pending
	case "authorized":
		*d = Authorized
	case "denied":
		*d = Denied
	default:
		return fmt.Errorf("unknown decision %q", text)
	}
	return nil
}

// Reason explains a Decision.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonLoginPath       Reason = "login_path"
	ReasonFresh           Reason = "fresh"
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonUnauthorized    Reason = "unauthorized"
	ReasonSessionExpired  Reason = "session_expired"
	ReasonProviderFailure Reason = "provider_failure"
)

// View tells the presentation layer what to render.
type View string

const (
	// ViewChildren renders the protected content.
	ViewChildren View = "children"

	// ViewLogin is shown while the client is sent to the login page.
	ViewLogin View = "login"

	// ViewDenial shows the signed-in email and a sign-out action.
	ViewDenial View = "denial"

	// ViewVerifying is shown while the identity is not yet known.
	ViewVerifying View = "verifying"
)

// Result is what the gate decided and what the client should do about it.
type Result struct {
	Decision Decision `json:"decision"`
	Reason   Reason   `json:"reason,omitempty"`
	View     View     `json:"view"`

	// Redirect is the path the client should navigate to, if any.
	Redirect string `json:"redirect,omitempty"`

	// Email is set for ViewDenial.
	Email string `json:"email,omitempty"`
}

func (r Result) Authorized() bool {
	return r.Decision == Authorized
}

var pendingResult = Result{Decision: Pending, View: ViewVerifying}
