package validation

import (
	"errors"
	"strings"
)

// ValidatePersonName accepts ASCII letters only.
func ValidatePersonName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("name is required")
	}
	if len(trimmed) > 100 {
		return errors.New("name is too long (max 100 characters)")
	}
	for _, r := range trimmed {
		if !isASCIILetter(r) {
			return errors.New("name may only contain letters")
		}
	}
	return nil
}

// ValidateAccountName accepts letters, digits, '-' and '_' so the name can
// be used as a URL path segment.
func ValidateAccountName(name string) error {
	if name == "" {
		return errors.New("account name is required")
	}
	if len(name) > 64 {
		return errors.New("account name is too long (max 64 characters)")
	}
	for _, r := range name {
		if !isASCIILetter(r) && !(r >= '0' && r <= '9') && r != '-' && r != '_' {
			return errors.New("account name may only contain letters, digits, '-' and '_'")
		}
	}
	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
