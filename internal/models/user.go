package models

import "time"

// User is an account stored in the document store. Provider is "password"
// for email/password accounts or "google" for OAuth sign-ins.
type User struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
	ModifiedAt   time.Time `json:"modified_at,omitempty"`
}

// Credential is the identity capability extracted from a completed
// sign-in: the only view of the auth boundary the rest of the system
// consumes.
type Credential struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
