package models

import "time"

// User represents a user in the system. Email is the login identifier.
type User struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Not serialized
	EmailVerified bool      `json:"email_verified"`
	VerifyToken   string    `json:"-"` // One-shot email verification token, cleared after use
	RefreshSeq    string    `json:"-"` // Rotation sequence embedded in refresh tokens; empty means no live refresh token
	Roles         RoleSet   `json:"roles"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
