package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
)

var (
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrNotificationFailure   = errors.New("notification failure")
	ErrStorageFailure        = errors.New("storage failure")
)

// Notifier delivers an issued token to its owner.
type Notifier interface {
	SendToken(ctx context.Context, email string, token *model.Token) error
}

// TokenAction runs while a token is held consumed. Returning an error
// releases the token again.
type TokenAction func(ctx context.Context, token *model.Token) error

// CredentialService issues and redeems single-use tokens.
type CredentialService struct {
	tokenRepository repository.TokenRepository
	notifier        Notifier
	now             func() time.Time
}

func NewCredentialService(tokenRepository repository.TokenRepository, notifier Notifier) *CredentialService {
	return &CredentialService{
		tokenRepository: tokenRepository,
		notifier:        notifier,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source. Used by tests to move past expiry.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	s.now = now
	return s
}

// IssueToken replaces any unused token of the same purpose for email and
// hands the new one to the notifier. A failed delivery is logged only; the
// token stays valid.
func (s *CredentialService) IssueToken(ctx context.Context, email string, purpose model.TokenPurpose, ttl time.Duration) (*model.Token, error) {
	value, err := GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.tokenRepository.DeleteUnused(ctx, email, purpose); err != nil {
		slog.Warn("failed to delete old tokens", "error", err, "email", email, "purpose", purpose)
	}

	now := s.now()
	token := &model.Token{
		Token:     value,
		Email:     email,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.tokenRepository.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("%w: failed to store token: %w", ErrStorageFailure, err)
	}

	if s.notifier != nil {
		if err := s.notifier.SendToken(ctx, email, token); err != nil {
			slog.Warn("failed to deliver token", "error", err, "email", email, "purpose", purpose)
		}
	}

	slog.Info("token issued", "email", email, "purpose", purpose, "expires_at", token.ExpiresAt)
	return token, nil
}

// IsValid reports whether value names an unused, unexpired token of purpose.
// Unknown values are simply invalid.
func (s *CredentialService) IsValid(ctx context.Context, value string, purpose model.TokenPurpose) (bool, error) {
	token, err := s.tokenRepository.ByToken(ctx, value)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return token.IsUsableFor(purpose, s.now()), nil
}

// ConsumeAndApply atomically claims the token and runs action. Of any number
// of concurrent calls for the same token at most one action runs. If the
// action fails the claim is released and the token can be used again.
func (s *CredentialService) ConsumeAndApply(ctx context.Context, value string, purpose model.TokenPurpose, action TokenAction) error {
	token, err := s.tokenRepository.Consume(ctx, value, purpose, s.now())
	if errors.Is(err, repository.ErrTokenNotFound) {
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if err := action(ctx, token); err != nil {
		if releaseErr := s.tokenRepository.Release(ctx, value); releaseErr != nil {
			slog.Error("failed to release token", "error", releaseErr, "purpose", purpose)
		}
		return err
	}

	slog.Info("token consumed", "email", token.Email, "purpose", purpose)
	return nil
}

// Cleanup deletes tokens that expired or were used more than retention ago.
func (s *CredentialService) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := s.tokenRepository.CleanupExpired(ctx, retention)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if removed > 0 {
		slog.Info("expired tokens removed", "count", removed)
	}
	return removed, nil
}

// GenerateToken returns 32 random bytes, hex encoded.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
