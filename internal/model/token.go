package model

import (
	"time"
)

type TokenPurpose string

const (
	TokenPurposeRegistrationConfirm TokenPurpose = "registration_confirm"
	TokenPurposePasswordReset       TokenPurpose = "password_reset"
)

type Token struct {
	ID        string       `db:"id"`
	Token     string       `db:"token"`
	Email     string       `db:"email"`
	Purpose   TokenPurpose `db:"purpose"`
	IssuedAt  time.Time    `db:"issued_at"`
	ExpiresAt time.Time    `db:"expires_at"`
	UsedAt    *time.Time   `db:"used_at"`
}

// IsExpired reports whether now is past the expiry instant. A token is still
// usable at exactly ExpiresAt.
func (t *Token) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func (t *Token) IsUsed() bool {
	return t.UsedAt != nil
}

func (t *Token) IsValid(now time.Time) bool {
	return !t.IsExpired(now) && !t.IsUsed()
}

// IsUsableFor is IsValid restricted to a single purpose.
func (t *Token) IsUsableFor(purpose TokenPurpose, now time.Time) bool {
	return t.Purpose == purpose && t.IsValid(now)
}
