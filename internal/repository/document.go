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
	ErrDocumentNotFound  = errors.New("document not found")
	ErrDuplicateDocument = errors.New("document name already exists in account")
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	ByAccountAndName(ctx context.Context, accountID, name string) (*model.Document, error)
	ListByAccountID(ctx context.Context, accountID string) ([]*model.Document, error)
	Delete(ctx context.Context, id string) error
}

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *model.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO documents (id, account_id, name, extension, mime_type, size, storage_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID,
		doc.AccountID,
		doc.Name,
		doc.Extension,
		doc.MimeType,
		doc.Size,
		doc.StoragePath,
		doc.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateDocument
	}
	return err
}

func (r *documentRepository) ByAccountAndName(ctx context.Context, accountID, name string) (*model.Document, error) {
	doc := &model.Document{}
	query := `SELECT * FROM documents WHERE account_id = $1 AND name = $2`

	err := r.db.GetContext(ctx, doc, query, accountID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *documentRepository) ListByAccountID(ctx context.Context, accountID string) ([]*model.Document, error) {
	var docs []*model.Document
	query := `SELECT * FROM documents WHERE account_id = $1 ORDER BY created_at, name`

	err := r.db.SelectContext(ctx, &docs, query, accountID)
	return docs, err
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
