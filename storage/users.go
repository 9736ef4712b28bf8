package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// User is a community member.
type User struct {
	ID          int64     `json:"id" yaml:"id"`
	Username    string    `json:"username" yaml:"username"`
	DisplayName string    `json:"displayName,omitempty" yaml:"display_name,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
}

const userColumns = `id, username, display_name, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var u User
	var created int64
	if err := r.Scan(&u.ID, &u.Username, &u.DisplayName, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = fromStamp(created)
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, username, displayName string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, fmt.Errorf("username is required")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(&exists)
	if err != nil {
		return User{}, fmt.Errorf("failed to check username: %w", err)
	}
	if exists > 0 {
		return User{}, fmt.Errorf("user %q: %w", username, ErrAlreadyExists)
	}

	now := s.stamp()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, display_name, created_at) VALUES (?, ?, ?)`,
		username, displayName, now)
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("failed to read user id: %w", err)
	}

	s.log.Info("user created", zap.Int64("user_id", id), zap.String("username", username))
	return User{ID: id, Username: username, DisplayName: displayName, CreatedAt: fromStamp(now)}, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	return userByUsername(ctx, s.db, username)
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// ListUsers returns every user ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return collectUsers(rows)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func userByUsername(ctx context.Context, q querier, username string) (User, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	u, err := scanUser(q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return users, nil
}

// IssueToken creates a new bearer token for userID. Only its SHA-256 hash is
// stored; the plaintext is returned once.
func (s *Store) IssueToken(ctx context.Context, userID int64, label string) (string, error) {
	if _, err := s.UserByID(ctx, userID); err != nil {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := "hm_" + hex.EncodeToString(raw)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_tokens (token_hash, user_id, label, created_at) VALUES (?, ?, ?, ?)`,
		hashToken(token), userID, label, s.stamp())
	if err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// UserByToken resolves a bearer token to its owner.
func (s *Store) UserByToken(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrNotFound
	}
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT u.id, u.username, u.display_name, u.created_at
		   FROM api_tokens t JOIN users u ON u.id = t.user_id
		  WHERE t.token_hash = ?`, hashToken(token)))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to resolve token: %w", err)
	}
	return u, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
