package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kundliinsight/kundli/internal/core"
)

// CreateContactMessage stores a message from the contact form.
func (s *Store) CreateContactMessage(ctx context.Context, msg core.ContactMessage) (*core.ContactMessage, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.Name == "" || msg.Email == "" || msg.Message == "" {
		return nil, errors.New("name, email and message are required")
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = s.now()

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO contact_messages (id, name, email, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.Name, msg.Email, msg.Message, msg.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	return &msg, nil
}

// ListContactMessages returns messages newest first. limit <= 0 means all.
func (s *Store) ListContactMessages(ctx context.Context, limit int) ([]core.ContactMessage, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT id, name, email, message, created_at FROM contact_messages ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	messages := []core.ContactMessage{}
	for rows.Next() {
		var (
			msg       core.ContactMessage
			createdAt int64
		)
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msg.CreatedAt = fromUnix(createdAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	return messages, nil
}
