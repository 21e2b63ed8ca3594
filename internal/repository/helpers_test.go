package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/docshelf/internal/db/dbtest"
	"github.com/templui/docshelf/internal/model"
)

func newUser(email string) *model.User {
	return &model.User{
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}
}

// createAccount registers a fresh owner and account on the given tier.
func createAccount(t *testing.T, db *sqlx.DB, name, level string) *model.Account {
	t.Helper()

	repo := NewAccountRepository(db, model.DefaultCatalog())
	account := &model.Account{Name: name, ServiceLevelName: level}
	owner := newUser(uuid.NewString() + "@example.com")
	require.NoError(t, repo.CreateWithOwner(context.Background(), owner, account))
	return account
}

func createUser(t *testing.T, db *sqlx.DB, email string) *model.User {
	t.Helper()

	user := newUser(email)
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func newDB(t *testing.T) *sqlx.DB {
	return dbtest.New(t)
}
