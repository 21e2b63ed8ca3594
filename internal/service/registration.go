package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/validation"
)

var (
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrDuplicateAccountName = errors.New("account name already taken")
	ErrInvalidInput         = errors.New("invalid input")
)

type RegisterInput struct {
	FirstName            string
	LastName             string
	Email                string
	Password             string
	PasswordConfirmation string
	AccountName          string
	ServiceLevel         string
}

// RegistrationService creates an owner together with their account and
// activates it once the emailed token comes back.
type RegistrationService struct {
	accountRepository repository.AccountRepository
	userRepository    repository.UserRepository
	credentials       *CredentialService
	hasher            PasswordHasher
	catalog           *model.Catalog
	confirmExpiry     time.Duration
}

func NewRegistrationService(
	accountRepository repository.AccountRepository,
	userRepository repository.UserRepository,
	credentials *CredentialService,
	hasher PasswordHasher,
	catalog *model.Catalog,
	confirmExpiry time.Duration,
) *RegistrationService {
	return &RegistrationService{
		accountRepository: accountRepository,
		userRepository:    userRepository,
		credentials:       credentials,
		hasher:            hasher,
		catalog:           catalog,
		confirmExpiry:     confirmExpiry,
	}
}

func (s *RegistrationService) RegisterNewAccount(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Password != in.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}

	email := validation.NormalizeEmail(in.Email)
	if err := validateRegistration(in, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	level, ok := s.catalog.Lookup(in.ServiceLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServiceLevel, in.ServiceLevel)
	}

	if _, err := s.userRepository.ByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if _, err := s.accountRepository.ByName(ctx, in.AccountName); err == nil {
		return nil, ErrDuplicateAccountName
	} else if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	account := &model.Account{
		Name:             in.AccountName,
		ServiceLevelName: level.Name,
	}

	// A concurrent registration can still win between the checks above and
	// this insert; the unique constraints decide.
	err = s.accountRepository.CreateWithOwner(ctx, user, account)
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return nil, ErrDuplicateEmail
	case errors.Is(err, repository.ErrDuplicateAccountName):
		return nil, ErrDuplicateAccountName
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	slog.Info("account registered", "user_id", user.ID, "account_id", account.ID, "service_level", level.Name)

	// The account exists at this point; ResendConfirmation can issue a new token
	if _, err := s.credentials.IssueToken(ctx, user.Email, model.TokenPurposeRegistrationConfirm, s.confirmExpiry); err != nil {
		slog.Warn("failed to issue confirmation token", "error", err, "user_id", user.ID)
	}

	return user, nil
}

// ConfirmRegistration activates the user named by the token. An unknown,
// used or expired token yields false without error.
func (s *RegistrationService) ConfirmRegistration(ctx context.Context, value string) (bool, error) {
	err := s.credentials.ConsumeAndApply(ctx, value, model.TokenPurposeRegistrationConfirm, func(ctx context.Context, token *model.Token) error {
		user, err := s.userRepository.ByEmail(ctx, token.Email)
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}

		if user.IsConfirmed() {
			return nil
		}
		now := s.credentials.now()
		user.ConfirmedAt = &now
		if err := s.userRepository.Update(ctx, user); err != nil {
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}

		slog.Info("registration confirmed", "user_id", user.ID)
		return nil
	})
	if errors.Is(err, ErrInvalidOrExpiredToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *RegistrationService) IsActivated(ctx context.Context, email string) (bool, error) {
	user, err := s.userRepository.ByEmail(ctx, validation.NormalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return user.IsConfirmed(), nil
}

// ResendConfirmation issues a fresh confirmation token for an unconfirmed
// user. Unknown or already confirmed emails are ignored so the endpoint does
// not reveal which addresses are registered.
func (s *RegistrationService) ResendConfirmation(ctx context.Context, email string) error {
	user, err := s.userRepository.ByEmail(ctx, validation.NormalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	if user.IsConfirmed() {
		return nil
	}

	_, err = s.credentials.IssueToken(ctx, user.Email, model.TokenPurposeRegistrationConfirm, s.confirmExpiry)
	return err
}

func validateRegistration(in RegisterInput, email string) error {
	checks := []error{
		validation.ValidatePersonName(in.FirstName),
		validation.ValidatePersonName(in.LastName),
		validation.ValidateEmail(email),
		validation.ValidatePassword(in.Password),
		validation.ValidateAccountName(in.AccountName),
	}
	for _, err := range checks {
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}
