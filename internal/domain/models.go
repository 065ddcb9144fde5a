package domain

import "time"

const RoleUser = "ROLE_USER"

type User struct {
	ID        string
	Email     string
	Username  string
	Roles     []string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

// TokenKind discriminates the two single-use token flows.
type TokenKind string

const (
	TokenKindVerification  TokenKind = "verification"
	TokenKindPasswordReset TokenKind = "password_reset"
)

// EphemeralToken is a single-use, time-boxed token persisted server-side.
// At most one active token exists per user and kind; issuing a new one
// replaces the previous.
type EphemeralToken struct {
	ID        string
	Kind      TokenKind
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
