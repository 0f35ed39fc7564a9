package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const fileColumns = `id, user_id, title, category, division, file_path, cover_image_path, upload_date`

// FileStore persists file records.
type FileStore struct {
	db DBTX
}

func NewFileStore(db DBTX) *FileStore {
	return &FileStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*FileRecord, error) {
	var (
		f      FileRecord
		userID sql.NullInt64
		cover  sql.NullString
	)
	if err := row.Scan(&f.ID, &userID, &f.Title, &f.Category, &f.Division, &f.FilePath, &cover, &f.UploadDate); err != nil {
		return nil, err
	}
	if userID.Valid {
		f.UserID = &userID.Int64
	}
	if cover.Valid {
		f.CoverImagePath = &cover.String
	}
	return &f, nil
}

// Insert stores a new record and returns it with its generated id.
func (s *FileStore) Insert(ctx context.Context, nf NewFile) (*FileRecord, error) {
	query := `INSERT INTO files (user_id, title, category, division, file_path, cover_image_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + fileColumns

	f, err := scanFile(s.db.QueryRowContext(ctx, query,
		nf.UserID, nf.Title, nf.Category, nf.Division, nf.FilePath, nullString(nf.CoverImagePath)))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// List returns every record ordered by id. The result is never nil.
func (s *FileStore) List(ctx context.Context) ([]*FileRecord, error) {
	return s.query(ctx, `SELECT `+fileColumns+` FROM files ORDER BY id`)
}

// Search returns records whose title or category contains q,
// case-insensitively. LIKE wildcards in q match literally. An empty q
// returns every record.
func (s *FileStore) Search(ctx context.Context, q string) ([]*FileRecord, error) {
	if strings.TrimSpace(q) == "" {
		return s.List(ctx)
	}
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE title ILIKE $1 OR category ILIKE $1
		ORDER BY id`
	return s.query(ctx, query, "%"+EscapeLike(q)+"%")
}

// UpdateMeta changes title and category only.
func (s *FileStore) UpdateMeta(ctx context.Context, id int64, title, category string) (*FileRecord, error) {
	query := `UPDATE files SET title = $1, category = $2 WHERE id = $3 RETURNING ` + fileColumns

	f, err := scanFile(s.db.QueryRowContext(ctx, query, title, category, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

// Delete removes a record and returns it so the caller can clean up the
// blobs it referenced.
func (s *FileStore) Delete(ctx context.Context, id int64) (*FileRecord, error) {
	query := `DELETE FROM files WHERE id = $1 RETURNING ` + fileColumns

	f, err := scanFile(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (s *FileStore) query(ctx context.Context, query string, args ...any) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters using the default backslash escape.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
