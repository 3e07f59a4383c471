package store

import (
	"context"
	"fmt"
)

// User is an admin account.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Name         string `db:"name" json:"name"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}

// DefaultRole is assigned when an account is created without one.
const DefaultRole = "viewer"

const userColumns = `id, username, COALESCE(name, '') AS name, password_hash,
	COALESCE(role, '') AS role, COALESCE(created_at, '') AS created_at`

// UserByUsername returns the account with the given login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return User{}, fmt.Errorf("user %q: %w", username, notFound(err))
	}
	return u, nil
}

// UserByID returns one account.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return User{}, fmt.Errorf("user %d: %w", id, notFound(err))
	}
	return u, nil
}

// ListUsers returns all accounts, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id DESC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUser inserts an account and returns its id. PasswordHash must already
// be hashed.
func (s *Store) CreateUser(ctx context.Context, u User) (int64, error) {
	if u.Role == "" {
		u.Role = DefaultRole
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, name, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.Username, u.Name, u.PasswordHash, u.Role, s.timestamp(),
	)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// UpdateUser changes name and role, and the password hash when one is given.
func (s *Store) UpdateUser(ctx context.Context, id int64, name, role, passwordHash string) error {
	query := `UPDATE users SET name = ?, role = ?`
	args := []any{name, role}
	if passwordHash != "" {
		query += `, password_hash = ?`
		args = append(args, passwordHash)
	}
	query += ` WHERE id = ?`
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update user %d: %w", id, err)
	}
	return nil
}
