package validation

import (
	"errors"
	"strings"
	"unicode"
)

const passwordSpecials = "#$^+=!*()@%&"

// ValidatePassword requires at least 8 characters with a lowercase letter,
// an uppercase letter, a digit and one of #$^+=!*()@%&.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	// bcrypt silently truncates anything longer than 72 bytes
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}

	if !lower || !upper || !digit || !special {
		return errors.New("password must contain a lowercase letter, an uppercase letter, a digit and one of " + passwordSpecials)
	}
	return nil
}
