package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/docshelf/internal/model"
)

var (
	ErrTokenNotFound  = errors.New("token not found")
	ErrDuplicateToken = errors.New("token value already exists")
)

// TokenRepository stores single-use credential tokens. Implementations must
// make Consume atomic: of any number of concurrent calls for the same value,
// at most one succeeds.
type TokenRepository interface {
	Create(ctx context.Context, token *model.Token) error
	ByToken(ctx context.Context, value string) (*model.Token, error)
	// Consume marks the token used if it has the given purpose, is unused and
	// has not expired at now. Otherwise it returns ErrTokenNotFound.
	Consume(ctx context.Context, value string, purpose model.TokenPurpose, now time.Time) (*model.Token, error)
	// Release clears the used mark so a consumed token can be retried.
	Release(ctx context.Context, value string) error
	DeleteUnused(ctx context.Context, email string, purpose model.TokenPurpose) error
	CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type tokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Create(ctx context.Context, token *model.Token) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tokens (id, token, email, purpose, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.Email,
		string(token.Purpose),
		token.IssuedAt,
		token.ExpiresAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	return err
}

func (r *tokenRepository) ByToken(ctx context.Context, value string) (*model.Token, error) {
	var t model.Token
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tokens WHERE token = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Consume is a single conditional UPDATE, so only the first of several
// concurrent requests sees a row come back.
func (r *tokenRepository) Consume(ctx context.Context, value string, purpose model.TokenPurpose, now time.Time) (*model.Token, error) {
	var t model.Token
	query := `
		UPDATE tokens
		SET used_at = $1
		WHERE token = $2
		AND purpose = $3
		AND used_at IS NULL
		AND expires_at >= $4
		RETURNING *
	`
	err := r.db.GetContext(ctx, &t, query, now, value, string(purpose), now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepository) Release(ctx context.Context, value string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tokens SET used_at = NULL WHERE token = $1`, value)
	return err
}

func (r *tokenRepository) DeleteUnused(ctx context.Context, email string, purpose model.TokenPurpose) error {
	query := `DELETE FROM tokens WHERE email = $1 AND purpose = $2 AND used_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, email, string(purpose))
	return err
}

// CleanupExpired removes used and expired tokens older than the given
// duration. Tokens are otherwise kept as an audit trail.
func (r *tokenRepository) CleanupExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	query := `
		DELETE FROM tokens
		WHERE (used_at IS NOT NULL AND used_at < $1)
		   OR (expires_at < $2)
	`
	result, err := r.db.ExecContext(ctx, query, cutoff, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
