package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/docshelf/internal/model"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateAccountName = errors.New("account name already exists")
	ErrVersionConflict      = errors.New("account version conflict")
	ErrCapacityExceeded     = errors.New("account member capacity exceeded")
	ErrUnknownServiceLevel  = errors.New("unknown service level")
)

type AccountRepository interface {
	// CreateWithOwner persists a new user together with the account it owns.
	// Either both rows are written or neither is.
	CreateWithOwner(ctx context.Context, owner *model.User, account *model.Account) error
	ByID(ctx context.Context, id string) (*model.Account, error)
	ByName(ctx context.Context, name string) (*model.Account, error)
	ByOwnerID(ctx context.Context, ownerID string) (*model.Account, error)
	ListByUserID(ctx context.Context, userID string) ([]*model.Account, error)
	// Update commits service level and membership. It fails with
	// ErrVersionConflict when the stored version differs from account.Version
	// and with ErrCapacityExceeded when members exceed the tier cap.
	Update(ctx context.Context, account *model.Account) error
}

type accountRepository struct {
	db      *sqlx.DB
	catalog *model.Catalog
}

func NewAccountRepository(db *sqlx.DB, catalog *model.Catalog) AccountRepository {
	return &accountRepository{db: db, catalog: catalog}
}

func (r *accountRepository) CreateWithOwner(ctx context.Context, owner *model.User, account *model.Account) error {
	level, ok := r.catalog.Lookup(account.ServiceLevelName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServiceLevel, account.ServiceLevelName)
	}

	now := time.Now().UTC()
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.ServiceLevelName = level.Name
	account.ServiceLevel = level
	account.Version = 1
	account.CreatedAt = now
	account.UpdatedAt = now

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, owner); err != nil {
			return err
		}
		account.OwnerID = owner.ID

		query := `
			INSERT INTO accounts (id, name, owner_id, service_level, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.ExecContext(ctx, query,
			account.ID,
			account.Name,
			account.OwnerID,
			account.ServiceLevelName,
			account.Version,
			account.CreatedAt,
			account.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return ErrDuplicateAccountName
		}
		return err
	})
	if err != nil {
		return err
	}

	// Members start empty; the owner has access without a membership row
	account.Owner = owner
	account.Users = nil
	account.Documents = nil
	return nil
}

func (r *accountRepository) ByID(ctx context.Context, id string) (*model.Account, error) {
	return r.accountBy(ctx, `SELECT * FROM accounts WHERE id = $1`, id)
}

func (r *accountRepository) ByName(ctx context.Context, name string) (*model.Account, error) {
	return r.accountBy(ctx, `SELECT * FROM accounts WHERE name = $1`, name)
}

func (r *accountRepository) ByOwnerID(ctx context.Context, ownerID string) (*model.Account, error) {
	return r.accountBy(ctx, `SELECT * FROM accounts WHERE owner_id = $1 ORDER BY created_at LIMIT 1`, ownerID)
}

func (r *accountRepository) accountBy(ctx context.Context, query string, arg any) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.GetContext(ctx, account, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.hydrate(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (r *accountRepository) ListByUserID(ctx context.Context, userID string) ([]*model.Account, error) {
	var accounts []*model.Account
	query := `
		SELECT DISTINCT a.* FROM accounts a
		LEFT JOIN account_members m ON m.account_id = a.id
		WHERE a.owner_id = $1 OR m.user_id = $2
		ORDER BY a.name
	`
	if err := r.db.SelectContext(ctx, &accounts, query, userID, userID); err != nil {
		return nil, err
	}

	for _, account := range accounts {
		if err := r.hydrate(ctx, account); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

// hydrate resolves the tier and loads owner, members and documents.
func (r *accountRepository) hydrate(ctx context.Context, account *model.Account) error {
	level, ok := r.catalog.Lookup(account.ServiceLevelName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServiceLevel, account.ServiceLevelName)
	}
	account.ServiceLevel = level

	owner, err := userBy(ctx, r.db, `SELECT * FROM users WHERE id = $1`, account.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}
	account.Owner = owner

	account.Users = nil
	query := `
		SELECT u.* FROM users u
		JOIN account_members m ON m.user_id = u.id
		WHERE m.account_id = $1
		ORDER BY m.added_at, u.email
	`
	if err := r.db.SelectContext(ctx, &account.Users, query, account.ID); err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	account.Documents = nil
	query = `SELECT * FROM documents WHERE account_id = $1 ORDER BY created_at, name`
	if err := r.db.SelectContext(ctx, &account.Documents, query, account.ID); err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	return nil
}

func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	level, ok := r.catalog.Lookup(account.ServiceLevelName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownServiceLevel, account.ServiceLevelName)
	}
	if level.HasUserCap() && len(account.Users) > level.MaxUsers {
		return ErrCapacityExceeded
	}

	now := time.Now().UTC()
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE accounts
			SET service_level = $1, version = version + 1, updated_at = $2
			WHERE id = $3 AND version = $4
		`
		result, err := tx.ExecContext(ctx, query, level.Name, now, account.ID, account.Version)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			var exists int
			if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM accounts WHERE id = $1`, account.ID); err != nil {
				return err
			}
			if exists == 0 {
				return ErrAccountNotFound
			}
			return ErrVersionConflict
		}

		return syncMembers(ctx, tx, account, now)
	})
	if err != nil {
		return err
	}

	account.ServiceLevelName = level.Name
	account.ServiceLevel = level
	account.Version++
	account.UpdatedAt = now
	return nil
}

// syncMembers makes account_members match account.Users, keeping the
// added_at of members that stay.
func syncMembers(ctx context.Context, tx *sqlx.Tx, account *model.Account, now time.Time) error {
	var current []string
	if err := tx.SelectContext(ctx, &current, `SELECT user_id FROM account_members WHERE account_id = $1`, account.ID); err != nil {
		return err
	}

	wanted := make(map[string]bool, len(account.Users))
	for _, u := range account.Users {
		wanted[u.ID] = true
	}
	existing := make(map[string]bool, len(current))
	for _, id := range current {
		existing[id] = true
		if !wanted[id] {
			_, err := tx.ExecContext(ctx, `DELETE FROM account_members WHERE account_id = $1 AND user_id = $2`, account.ID, id)
			if err != nil {
				return err
			}
		}
	}
	for _, u := range account.Users {
		if existing[u.ID] {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO account_members (account_id, user_id, added_at) VALUES ($1, $2, $3)`,
			account.ID, u.ID, now,
		)
		if err != nil {
			return err
		}
		existing[u.ID] = true
	}
	return nil
}
