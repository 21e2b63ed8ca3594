package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/templui/docshelf/internal/model"
)

// EmailService delivers credential tokens by email. In development it only
// logs the link.
type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendToken(ctx context.Context, email string, token *model.Token) error {
	var subject, body, link string
	validFor := token.ExpiresAt.Sub(token.IssuedAt).Round(time.Minute)

	switch token.Purpose {
	case model.TokenPurposeRegistrationConfirm:
		link = fmt.Sprintf("%s/auth/confirm/%s", s.appURL, token.Token)
		subject, body = confirmRegistrationEmailTemplate(link, s.appName, validFor)
	case model.TokenPurposePasswordReset:
		link = fmt.Sprintf("%s/auth/reset-password/%s", s.appURL, token.Token)
		subject, body = resetPasswordEmailTemplate(link, s.appName, validFor)
	default:
		return fmt.Errorf("%w: no email template for %q", ErrNotificationFailure, token.Purpose)
	}

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", token.Purpose, "to", email, "subject", subject, "url", link)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("%w: email service not configured (missing RESEND_API_KEY)", ErrNotificationFailure)
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{email},
		Subject: subject,
		Text:    body,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("%w: %w", ErrNotificationFailure, err)
	}

	slog.Info("email sent", "type", token.Purpose, "to", email)
	return nil
}
