package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pdfchat-backend/internal/shared/storage/db"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, first_name, last_name, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		NormalizeEmail(user.Email),
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, first_name, last_name, password_hash, created_at
FROM users
WHERE id = $1
LIMIT 1`
	return r.scanOne(ctx, query, userID)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	const query = `
SELECT id, email, first_name, last_name, password_hash, created_at
FROM users
WHERE email = $1
LIMIT 1`
	return r.scanOne(ctx, query, NormalizeEmail(email))
}

func (r *PGRepo) scanOne(ctx context.Context, query string, arg string) (User, error) {
	var user User
	var firstName, lastName, passwordHash sql.NullString
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&firstName,
		&lastName,
		&passwordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String
	user.PasswordHash = passwordHash.String
	return user, nil
}
