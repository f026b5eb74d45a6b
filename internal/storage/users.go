package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"trackify/internal/core"
)

// UserRecord is a users row. PasswordHash never leaves the credential service.
type UserRecord struct {
	Email        string
	Name         string
	PasswordHash string
}

// CreateUser inserts a user. The email must already be normalized; a primary
// key collision is reported as core.ErrDuplicateEmail.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password) VALUES (?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %s: %w", u.Email, core.ErrDuplicateEmail)
		}
		return storageFault("create user", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "email", u.Email)
	return nil
}

// GetUserByEmail loads a user by normalized email.
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (UserRecord, error) {
	var u UserRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT email, name, password FROM users WHERE email = ?`, email,
	).Scan(&u.Email, &u.Name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, fmt.Errorf("get user %s: %w", email, core.ErrNotFound)
	}
	if err != nil {
		return UserRecord{}, storageFault("get user", err)
	}
	return u, nil
}

// UserExists reports whether email is registered.
func (r *SQLiteRepository) UserExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, storageFault("check user", err)
	}
	return n > 0, nil
}
