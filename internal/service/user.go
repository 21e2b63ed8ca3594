package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/validation"
)

var (
	ErrIncorrectPassword = errors.New("current password is incorrect")
)

type UserService struct {
	userRepository repository.UserRepository
	credentials    *CredentialService
	hasher         PasswordHasher
	resetExpiry    time.Duration
}

func NewUserService(
	userRepository repository.UserRepository,
	credentials *CredentialService,
	hasher PasswordHasher,
	resetExpiry time.Duration,
) *UserService {
	return &UserService{
		userRepository: userRepository,
		credentials:    credentials,
		hasher:         hasher,
		resetExpiry:    resetExpiry,
	}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return user, nil
}

// ChangePassword returns the updated user. On error the passed user is
// left untouched.
func (s *UserService) ChangePassword(ctx context.Context, user *model.User, currentPassword, newPassword, confirmation string) (*model.User, error) {
	if newPassword != confirmation {
		return nil, ErrPasswordMismatch
	}
	if !s.hasher.Matches(currentPassword, user.PasswordHash) {
		return nil, ErrIncorrectPassword
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	updated := *user
	updated.PasswordHash = hash
	if err := s.userRepository.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	slog.Info("password changed", "user_id", user.ID)
	return &updated, nil
}

// RequestPasswordReset sends a reset token. Unknown emails succeed silently
// so callers cannot discover registered addresses.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = validation.NormalizeEmail(email)

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		slog.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	_, err = s.credentials.IssueToken(ctx, user.Email, model.TokenPurposePasswordReset, s.resetExpiry)
	return err
}

func (s *UserService) IsValidPasswordResetToken(ctx context.Context, value string) (bool, error) {
	return s.credentials.IsValid(ctx, value, model.TokenPurposePasswordReset)
}

// ResetPassword sets a new password if the token is a valid reset token
// issued to email. The token is consumed only when the update succeeds.
func (s *UserService) ResetPassword(ctx context.Context, email, newPassword, confirmation, value string) error {
	if newPassword != confirmation {
		return ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	email = validation.NormalizeEmail(email)
	return s.credentials.ConsumeAndApply(ctx, value, model.TokenPurposePasswordReset, func(ctx context.Context, token *model.Token) error {
		if token.Email != email {
			return ErrInvalidOrExpiredToken
		}

		user, err := s.userRepository.ByEmail(ctx, email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}

		user.PasswordHash = hash
		if err := s.userRepository.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}

		slog.Info("password reset", "user_id", user.ID)
		return nil
	})
}
