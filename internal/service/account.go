package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/storage"
	"github.com/templui/docshelf/internal/validation"
)

var (
	ErrAccountNotFound         = errors.New("account not found")
	ErrUserAlreadyMember       = errors.New("user is already a member of this account")
	ErrMembershipLimitExceeded = errors.New("membership limit exceeded for service level")
	ErrUserNotFound            = errors.New("user not found")
	ErrCannotRemoveSelf        = errors.New("cannot remove yourself from the account")
	ErrInvalidServiceLevel     = errors.New("invalid service level")
	ErrDuplicateDocument       = errors.New("a document with this name already exists")
	ErrEmptyFile               = errors.New("file is empty")
	ErrDocumentNotFound        = errors.New("document not found")
	ErrConcurrentModification  = errors.New("account was modified concurrently, reload and retry")
	ErrLinksUnsupported        = errors.New("storage backend cannot create download links")
)

// Upload is a file submitted for storage on an account.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AccountService owns membership, service level and document changes.
// Every mutating method works on a copy: on error the passed account is
// returned untouched, on success the committed copy is returned.
type AccountService struct {
	accountRepository  repository.AccountRepository
	userRepository     repository.UserRepository
	documentRepository repository.DocumentRepository
	storage            storage.Storage
	catalog            *model.Catalog
}

func NewAccountService(
	accountRepository repository.AccountRepository,
	userRepository repository.UserRepository,
	documentRepository repository.DocumentRepository,
	storage storage.Storage,
	catalog *model.Catalog,
) *AccountService {
	return &AccountService{
		accountRepository:  accountRepository,
		userRepository:     userRepository,
		documentRepository: documentRepository,
		storage:            storage,
		catalog:            catalog,
	}
}

func (s *AccountService) AddUserByEmail(ctx context.Context, email string, account *model.Account) (*model.Account, error) {
	email = validation.NormalizeEmail(email)

	if account.HasMember(email) {
		return account, fmt.Errorf("%w: %s", ErrUserAlreadyMember, email)
	}
	if account.HasMaxUsers() {
		return account, fmt.Errorf("%w: %s allows %d members", ErrMembershipLimitExceeded, account.ServiceLevel.Name, account.ServiceLevel.MaxUsers)
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return account, fmt.Errorf("%w: %s", ErrUserNotFound, email)
	}
	if err != nil {
		return account, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	updated := account.Clone()
	updated.Users = append(updated.Users, user)
	if err := s.commit(ctx, updated); err != nil {
		return account, err
	}

	slog.Info("member added", "account_id", account.ID, "user_id", user.ID)
	return updated, nil
}

// RemoveUserByID removes a member. Removing a user who is not a member is a
// no-op.
func (s *AccountService) RemoveUserByID(ctx context.Context, userID string, requester *model.User, account *model.Account) (*model.Account, error) {
	if requester != nil && requester.ID == userID {
		return account, ErrCannotRemoveSelf
	}

	if _, err := s.userRepository.ByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return account, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
		}
		return account, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if account.MemberByID(userID) == nil {
		return account, nil
	}

	updated := account.Clone()
	updated.Users = updated.Users[:0]
	for _, u := range account.Users {
		if u.ID != userID {
			updated.Users = append(updated.Users, u)
		}
	}
	if err := s.commit(ctx, updated); err != nil {
		return account, err
	}

	slog.Info("member removed", "account_id", account.ID, "user_id", userID)
	return updated, nil
}

// ChangeServiceLevel refuses a downgrade below the current member count.
func (s *AccountService) ChangeServiceLevel(ctx context.Context, account *model.Account, levelName string) (*model.Account, error) {
	level, ok := s.catalog.Lookup(levelName)
	if !ok {
		return account, fmt.Errorf("%w: %q", ErrInvalidServiceLevel, levelName)
	}
	if level.HasUserCap() && len(account.Users) > level.MaxUsers {
		return account, fmt.Errorf("%w: %s allows %d members, account has %d", ErrMembershipLimitExceeded, level.Name, level.MaxUsers, len(account.Users))
	}

	updated := account.Clone()
	updated.ServiceLevelName = level.Name
	updated.ServiceLevel = level
	if err := s.commit(ctx, updated); err != nil {
		return account, err
	}

	slog.Info("service level changed", "account_id", account.ID, "from", account.ServiceLevel.Name, "to", level.Name)
	return updated, nil
}

func (s *AccountService) AddDocument(ctx context.Context, upload Upload, account *model.Account) (*model.Account, error) {
	name, extension := model.SplitFileName(upload.Filename)

	if account.HasDocument(name) {
		return account, fmt.Errorf("%w: %s", ErrDuplicateDocument, name)
	}
	if len(upload.Content) == 0 {
		return account, ErrEmptyFile
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := &model.Document{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Name:      name,
		Extension: extension,
		MimeType:  contentType,
		Size:      int64(len(upload.Content)),
		CreatedAt: time.Now().UTC(),
		Content:   upload.Content,
	}
	doc.StoragePath = fmt.Sprintf("accounts/%s/documents/%s", account.ID, doc.ID)

	if err := s.storage.Save(ctx, doc.StoragePath, bytes.NewReader(upload.Content), contentType); err != nil {
		return account, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if err := s.documentRepository.Create(ctx, doc); err != nil {
		if cleanupErr := s.storage.Delete(ctx, doc.StoragePath); cleanupErr != nil {
			slog.Warn("failed to clean up orphaned document", "error", cleanupErr, "path", doc.StoragePath)
		}
		if errors.Is(err, repository.ErrDuplicateDocument) {
			return account, fmt.Errorf("%w: %s", ErrDuplicateDocument, name)
		}
		return account, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	updated := account.Clone()
	updated.Documents = append(updated.Documents, doc)

	slog.Info("document added", "account_id", account.ID, "document_id", doc.ID, "size", doc.Size)
	return updated, nil
}

func (s *AccountService) RemoveDocumentByName(ctx context.Context, name string, account *model.Account) (*model.Account, error) {
	doc := account.DocumentByName(name)
	if doc == nil {
		return account, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}

	if err := s.documentRepository.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return account, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
		}
		return account, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	if err := s.storage.Delete(ctx, doc.StoragePath); err != nil {
		slog.Warn("failed to delete document content", "error", err, "path", doc.StoragePath)
	}

	updated := account.Clone()
	updated.Documents = updated.Documents[:0]
	for _, d := range account.Documents {
		if d.ID != doc.ID {
			updated.Documents = append(updated.Documents, d)
		}
	}

	slog.Info("document removed", "account_id", account.ID, "document_id", doc.ID)
	return updated, nil
}

// Document loads a document including its content.
func (s *AccountService) Document(ctx context.Context, account *model.Account, name string) (*model.Document, error) {
	doc, err := s.documentRepository.ByAccountAndName(ctx, account.ID, name)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	r, err := s.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	defer func() { _ = r.Close() }()

	doc.Content, err = io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return doc, nil
}

// DocumentLink returns a time-limited direct download URL when the storage
// backend supports it.
func (s *AccountService) DocumentLink(ctx context.Context, account *model.Account, name string, expiry time.Duration) (string, error) {
	presigner, ok := s.storage.(storage.Presigner)
	if !ok {
		return "", ErrLinksUnsupported
	}

	doc := account.DocumentByName(name)
	if doc == nil {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, name)
	}

	url, err := presigner.PresignedURL(ctx, doc.StoragePath, expiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return url, nil
}

func (s *AccountService) ByID(ctx context.Context, id string) (*model.Account, error) {
	return s.lookup(s.accountRepository.ByID(ctx, id))
}

func (s *AccountService) ByName(ctx context.Context, name string) (*model.Account, error) {
	return s.lookup(s.accountRepository.ByName(ctx, name))
}

func (s *AccountService) AccountByOwnerID(ctx context.Context, ownerID string) (*model.Account, error) {
	return s.lookup(s.accountRepository.ByOwnerID(ctx, ownerID))
}

func (s *AccountService) AccountsForUser(ctx context.Context, userID string) ([]*model.Account, error) {
	accounts, err := s.accountRepository.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return accounts, nil
}

func (s *AccountService) AccountNameExists(ctx context.Context, name string) (bool, error) {
	_, err := s.accountRepository.ByName(ctx, name)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return true, nil
}

func (s *AccountService) Rate(account *model.Account) decimal.Decimal {
	return account.Rate()
}

func (s *AccountService) ServiceLevels() []model.ServiceLevel {
	return s.catalog.Levels()
}

func (s *AccountService) lookup(account *model.Account, err error) (*model.Account, error) {
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return account, nil
}

// commit persists membership and service level, bumping account.Version.
func (s *AccountService) commit(ctx context.Context, account *model.Account) error {
	err := s.accountRepository.Update(ctx, account)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrConcurrentModification
	case errors.Is(err, repository.ErrCapacityExceeded):
		return fmt.Errorf("%w: %s allows %d members", ErrMembershipLimitExceeded, account.ServiceLevel.Name, account.ServiceLevel.MaxUsers)
	case errors.Is(err, repository.ErrAccountNotFound):
		return ErrAccountNotFound
	default:
		return fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
}
