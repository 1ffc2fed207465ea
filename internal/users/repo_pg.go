package users

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// GetByID returns a user by ID.
func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, tier, created_at
FROM users
WHERE id = $1
LIMIT 1`
	var u User
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Email, &u.Tier, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

var _ Repo = (*PGRepo)(nil)
