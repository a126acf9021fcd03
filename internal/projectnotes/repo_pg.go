package projectnotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PGRepo struct {
	DB *sql.DB
}

const noteColumns = `id, title, description, file_id, file_name, file_type, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, note Note) error {
	const query = `
INSERT INTO project_notes (id, title, description, file_id, file_name, file_type, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		note.ID,
		note.Title,
		note.Description,
		nullString(note.FileID),
		nullString(note.FileName),
		nullString(note.FileType),
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project note: %w", err)
	}
	return nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (Note, error) {
	query := `SELECT ` + noteColumns + ` FROM project_notes WHERE id = $1`
	return scanNote(r.DB.QueryRowContext(ctx, query, id))
}

func (r *PGRepo) List(ctx context.Context) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM project_notes ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list project notes: %w", err)
	}
	defer rows.Close()

	out := make([]Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PGRepo) Update(ctx context.Context, note Note) error {
	const query = `
UPDATE project_notes
SET title = $2,
    description = $3,
    file_id = $4,
    file_name = $5,
    file_type = $6,
    updated_at = $7
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		note.ID,
		note.Title,
		note.Description,
		nullString(note.FileID),
		nullString(note.FileName),
		nullString(note.FileType),
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update project note: %w", err)
	}
	return expectOneRow(res)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM project_notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project note: %w", err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (Note, error) {
	var (
		n                          Note
		fileID, fileName, fileType sql.NullString
	)
	err := row.Scan(&n.ID, &n.Title, &n.Description, &fileID, &fileName, &fileType, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Note{}, ErrNotFound
		}
		return Note{}, err
	}
	n.FileID = fileID.String
	n.FileName = fileName.String
	n.FileType = fileType.String
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
