package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kundliinsight/kundli/internal/core"
)

// CreateSession starts a session for userID that expires after ttl.
func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*core.Session, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	now := s.now()
	session := &core.Session{
		// Two v4 UUIDs: 244 random bits.
		ID:        strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", ""),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, session.ID, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}

// GetSession returns a live session. Expired sessions are reported as
// ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*core.Session, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	var (
		session   core.Session
		createdAt int64
		expiresAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, expires_at
		FROM sessions
		WHERE id = ?
	`, id)
	if err := row.Scan(&session.ID, &session.UserID, &createdAt, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	session.CreatedAt = fromUnix(createdAt)
	session.ExpiresAt = fromUnix(expiresAt)

	if session.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, strings.TrimSpace(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes expired sessions and returns how many went.
func (s *Store) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions rows affected: %w", err)
	}
	return removed, nil
}
