package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const (
	// pgUniqueViolation is the SQLSTATE Postgres uses for unique constraint failures.
	pgUniqueViolation = "23505"
	pgPrimaryKey      = "documents_pkey"
	sqliteIDViolation = "UNIQUE constraint failed: documents.id"
)

// SQLRepo implements Repo on Postgres (pgx) or SQLite. Queries use "?" and are
// rebound to the driver's placeholder style.
type SQLRepo struct {
	DB *sqlx.DB
}

const documentColumns = `id, owner_id, file_name, storage_path, size_bytes, media_type, created_at`

func (r *SQLRepo) Insert(ctx context.Context, doc Document) error {
	query := r.DB.Rebind(`
INSERT INTO documents (` + documentColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.StoragePath,
		doc.SizeBytes,
		doc.MediaType,
		doc.CreatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateID(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, doc.ID)
		}
		return err
	}
	return nil
}

func (r *SQLRepo) ListByOwner(ctx context.Context, ownerID string) ([]Document, error) {
	query := r.DB.Rebind(`
SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = ?
ORDER BY created_at DESC, id DESC`)
	docs := make([]Document, 0)
	if err := r.DB.SelectContext(ctx, &docs, query, ownerID); err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].CreatedAt = docs[i].CreatedAt.UTC()
	}
	return docs, nil
}

func (r *SQLRepo) GetByID(ctx context.Context, ownerID, documentID string) (Document, error) {
	query := r.DB.Rebind(`
SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = ? AND id = ?
LIMIT 1`)
	var doc Document
	if err := r.DB.GetContext(ctx, &doc, query, ownerID, documentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	return doc, nil
}

func (r *SQLRepo) DeleteByID(ctx context.Context, ownerID, documentID string) error {
	query := r.DB.Rebind(`DELETE FROM documents WHERE owner_id = ? AND id = ?`)
	res, err := r.DB.ExecContext(ctx, query, ownerID, documentID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateID reports a primary key collision. Other unique constraints, such
// as storage_path, are left to the caller as ordinary failures.
func isDuplicateID(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == pgPrimaryKey
	}
	// modernc sqlite reports constraint failures only through the message.
	return strings.Contains(err.Error(), sqliteIDViolation)
}

var _ Repo = (*SQLRepo)(nil)
