package validation

import (
	"errors"
	"net/mail"
	"strings"
)

const maxEmailLength = 254

// NormalizeEmail is the canonical form used for lookups and membership
// checks. Addresses are compared case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail expects a bare address, not a "Name <addr>" form.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email address is required")
	}
	if len(email) > maxEmailLength {
		return errors.New("email address is too long (max 254 characters)")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address format")
	}
	if !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@")+1:], ".") {
		return errors.New("email domain must contain a dot")
	}

	return nil
}
