package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kundliinsight/kundli/internal/core"
)

// CreateUser hashes password and inserts a new account.
func (s *Store) CreateUser(ctx context.Context, username, password string, isAdmin bool) (*core.User, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if err := core.ValidateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &core.User{
		ID:           uuid.NewString(),
		Username:     username,
		IsAdmin:      isAdmin,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.Username, user.PasswordHash, boolToInt(isAdmin), user.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("store user: %w", err)
	}

	return user, nil
}

// GetUser returns the user with id.
func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	return s.getUserBy(ctx, "id", strings.TrimSpace(id))
}

// GetUserByUsername returns the user with username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return s.getUserBy(ctx, "username", strings.TrimSpace(username))
}

func (s *Store) getUserBy(ctx context.Context, column, value string) (*core.User, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, ErrNotFound
	}

	var (
		user      core.User
		isAdmin   int
		createdAt int64
	)
	// column is one of two constants chosen by the callers above.
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE `+column+` = ?
	`, value)
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &isAdmin, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	user.IsAdmin = isAdmin != 0
	user.CreatedAt = fromUnix(createdAt)
	return &user, nil
}

// Authenticate returns the user when password matches. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, username, password string) (*core.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Spend comparable time so unknown usernames are not distinguishable.
			_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("kundli-dummy-password"), bcrypt.DefaultCost)
	return hash
})

// UpdatePassword replaces the password of username.
func (s *Store) UpdatePassword(ctx context.Context, username, password string) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if err := core.ValidateCredentials(username, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE username = ?`, string(hash), username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(res, "user")
}

// CountAdmins returns the number of admin accounts.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return count, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func expectAffected(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
