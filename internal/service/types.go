package service

import "time"

type LoginRequest struct {
	// Issuer selects the password issuer. Empty uses the first one configured.
	Issuer string `json:"issuer,omitempty"`

	Email    string `json:"email"`
	Password string `json:"password"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ContactResponse is returned after a message was accepted.
type ContactResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
