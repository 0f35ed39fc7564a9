package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UserStore persists users.
type UserStore struct {
	db DBTX
}

func NewUserStore(db DBTX) *UserStore {
	return &UserStore{db: db}
}

// Create inserts a user and returns the stored row. A duplicate email
// surfaces as the driver's unique-violation error.
func (s *UserStore) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	const query = `INSERT INTO users (email, password) VALUES ($1, $2) RETURNING id, created_at`

	u := &User{Email: email, PasswordHash: passwordHash}
	if err := s.db.QueryRowContext(ctx, query, email, passwordHash).Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// GetByEmail matches case-insensitively so rows stored before emails were
// lowercased still resolve. Returns ErrNotFound when nothing matches.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	const query = `SELECT id, email, password, created_at FROM users WHERE lower(email) = lower($1) ORDER BY id LIMIT 1`

	var u User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}
