package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docmanager-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const listedColumns = `
    d.id,
    d.filename,
    d.document_type,
    d.user_id,
    d.uploaded_by,
    d.mime_type,
    d.size_bytes,
    d.remote_id,
    d.created_at,
    u.id,
    u.email,
    u.full_name`

// Create inserts doc. The owner row is locked so concurrent uploads for the
// same owner serialize on the duplicate check; the unique index backs it up.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var ownerID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, doc.UserID).Scan(&ownerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOwnerNotFound
			}
			return fmt.Errorf("lock owner: %w", err)
		}

		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE user_id = $1 AND filename = $2)`,
			doc.UserID, doc.Filename,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			return ErrConflict
		}

		const insert = `
INSERT INTO documents (
    id,
    filename,
    document_type,
    user_id,
    uploaded_by,
    mime_type,
    size_bytes,
    remote_id,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = tx.ExecContext(ctx, insert,
			doc.ID,
			doc.Filename,
			doc.DocumentType,
			doc.UserID,
			doc.UploadedBy,
			doc.MimeType,
			doc.SizeBytes,
			doc.RemoteID,
			doc.CreatedAt,
		)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrConflict
			}
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	})
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (Document, error) {
	query := `SELECT` + listedColumns + `
FROM documents d
JOIN users u ON u.id = d.user_id
WHERE d.id = $1`
	item, err := scanListed(r.DB.QueryRowContext(ctx, query, id))
	return item.Document, err
}

func (r *PGRepo) GetByOwnerAndFilename(ctx context.Context, userID, filename string) (Document, error) {
	query := `SELECT` + listedColumns + `
FROM documents d
JOIN users u ON u.id = d.user_id
WHERE d.user_id = $1 AND d.filename = $2`
	item, err := scanListed(r.DB.QueryRowContext(ctx, query, userID, filename))
	return item.Document, err
}

func (r *PGRepo) ListByOwner(ctx context.Context, userID string, limit, offset int) ([]Listed, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	query := `SELECT` + listedColumns + `
FROM documents d
JOIN users u ON u.id = d.user_id
WHERE d.user_id = $1
ORDER BY d.created_at DESC, d.id DESC
LIMIT $2 OFFSET $3`
	items, err := r.query(ctx, query, userID, limit, offset)
	return items, total, err
}

func (r *PGRepo) ListAll(ctx context.Context, limit, offset int) ([]Listed, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	query := `SELECT` + listedColumns + `
FROM documents d
JOIN users u ON u.id = d.user_id
ORDER BY d.created_at DESC, d.id DESC
LIMIT $1 OFFSET $2`
	items, err := r.query(ctx, query, limit, offset)
	return items, total, err
}

func (r *PGRepo) Recent(ctx context.Context, limit int) ([]Listed, error) {
	query := `SELECT` + listedColumns + `
FROM documents d
JOIN users u ON u.id = d.user_id
ORDER BY d.created_at DESC, d.id DESC
LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Listed, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]Listed, 0)
	for rows.Next() {
		item, err := scanListed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListed(row rowScanner) (Listed, error) {
	var item Listed
	err := row.Scan(
		&item.ID,
		&item.Filename,
		&item.DocumentType,
		&item.UserID,
		&item.UploadedBy,
		&item.MimeType,
		&item.SizeBytes,
		&item.RemoteID,
		&item.CreatedAt,
		&item.Owner.ID,
		&item.Owner.Email,
		&item.Owner.FullName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Listed{}, ErrNotFound
		}
		return Listed{}, err
	}
	return item, nil
}
