package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/templui/docshelf/internal/db/dbtest"
	"github.com/templui/docshelf/internal/model"
	"github.com/templui/docshelf/internal/repository"
	"github.com/templui/docshelf/internal/storage"
)

const testPassword = "Abc12345!"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Token
	err  error
}

func (n *recordingNotifier) SendToken(ctx context.Context, email string, token *model.Token) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, *token)
	return n.err
}

func (n *recordingNotifier) last(t *testing.T) model.Token {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no token was sent")
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errInjected = errors.New("injected failure")

// failingStorage fails Save with saveErr and otherwise behaves like MemoryStorage.
type failingStorage struct {
	*storage.MemoryStorage
	saveErr error
}

func (s *failingStorage) Save(ctx context.Context, path string, file io.Reader, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStorage.Save(ctx, path, file, contentType)
}

// failingDocuments rejects every insert with createErr.
type failingDocuments struct {
	repository.DocumentRepository
	createErr error
}

func (r *failingDocuments) Create(ctx context.Context, doc *model.Document) error {
	return r.createErr
}

// failingTokens rejects every insert with createErr.
type failingTokens struct {
	repository.TokenRepository
	createErr error
}

func (r *failingTokens) Create(ctx context.Context, token *model.Token) error {
	return r.createErr
}

// countingHasher records how often Matches runs.
type countingHasher struct {
	PasswordHasher
	mu      sync.Mutex
	matches int
}

func (h *countingHasher) Matches(password, hash string) bool {
	h.mu.Lock()
	h.matches++
	h.mu.Unlock()
	return h.PasswordHasher.Matches(password, hash)
}

func (h *countingHasher) matchCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.matches
}

type fixture struct {
	ctx      context.Context
	notifier *recordingNotifier
	clock    *fakeClock
	storage  *storage.MemoryStorage
	users    repository.UserRepository
	tokens   repository.TokenRepository

	catalog           *model.Catalog
	hasher            *BcryptHasher
	accountRepository repository.AccountRepository
	documents         repository.DocumentRepository

	credentials  *CredentialService
	accounts     *AccountService
	registration *RegistrationService
	userService  *UserService
	auth         *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	catalog := model.DefaultCatalog()
	hasher := NewBcryptHasher(bcrypt.MinCost)

	f := &fixture{
		ctx:      context.Background(),
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: time.Now().UTC().Truncate(time.Second)},
		storage:  storage.NewMemoryStorage(),
		users:    repository.NewUserRepository(db),
		tokens:   repository.NewTokenRepository(db),

		catalog:           catalog,
		hasher:            hasher,
		accountRepository: repository.NewAccountRepository(db, catalog),
		documents:         repository.NewDocumentRepository(db),
	}

	f.credentials = NewCredentialService(f.tokens, f.notifier).WithClock(f.clock.Now)
	f.accounts = NewAccountService(f.accountRepository, f.users, f.documents, f.storage, catalog)
	f.registration = NewRegistrationService(f.accountRepository, f.users, f.credentials, hasher, catalog, 24*time.Hour)
	f.userService = NewUserService(f.users, f.credentials, hasher, time.Hour)
	f.auth = NewAuthService(f.users, hasher, "test-secret", time.Hour, false)
	return f
}

func registerInput(email, accountName, level string) RegisterInput {
	return RegisterInput{
		FirstName:            "Ada",
		LastName:             "Lovelace",
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		AccountName:          accountName,
		ServiceLevel:         level,
	}
}

// register creates and confirms an owner with their account.
func (f *fixture) register(t *testing.T, email, accountName, level string) (*model.User, *model.Account) {
	t.Helper()

	user, err := f.registration.RegisterNewAccount(f.ctx, registerInput(email, accountName, level))
	require.NoError(t, err)

	ok, err := f.registration.ConfirmRegistration(f.ctx, f.notifier.last(t).Token)
	require.NoError(t, err)
	require.True(t, ok)

	account, err := f.accounts.ByName(f.ctx, accountName)
	require.NoError(t, err)
	return user, account
}

// createUser stores a confirmed user that owns no account.
func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()

	now := time.Now().UTC()
	user := &model.User{
		Email:        email,
		PasswordHash: "unused",
		FirstName:    "Grace",
		LastName:     "Hopper",
		ConfirmedAt:  &now,
	}
	require.NoError(t, f.users.Create(f.ctx, user))
	return user
}
