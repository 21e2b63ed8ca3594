package service

import (
	"fmt"
	"time"
)

func confirmRegistrationEmailTemplate(confirmURL, appName string, validFor time.Duration) (string, string) {
	subject := fmt.Sprintf("Confirm your %s account", appName)
	body := fmt.Sprintf(`Welcome to %s!

Please confirm your email address to activate your account:
%s

This link expires in %s and can only be used once.

If you didn't sign up, you can ignore this email.

Best,
The %s Team`, appName, confirmURL, formatValidity(validFor), appName)

	return subject, body
}

func resetPasswordEmailTemplate(resetURL, appName string, validFor time.Duration) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`You requested to reset your password. Choose a new one here:
%s

This link expires in %s and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, resetURL, formatValidity(validFor), appName)

	return subject, body
}

func formatValidity(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d.Hours()); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return d.String()
	}
}
