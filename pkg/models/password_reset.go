package models

import "time"

// PasswordReset is a single-use token allowing a user to set a new password.
type PasswordReset struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer usable at now.
func (p *PasswordReset) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
