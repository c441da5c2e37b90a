package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kundliinsight/kundli/internal/core"
)

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, slug, description, created_at
		FROM categories
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	categories := []core.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns the category with id.
func (s *Store) GetCategory(ctx context.Context, id int64) (*core.Category, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, slug, description, created_at
		FROM categories
		WHERE id = ?
	`, id)
	category, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return category, err
}

// CreateCategory inserts category. A duplicate slug yields ErrConflict.
func (s *Store) CreateCategory(ctx context.Context, category core.Category) (*core.Category, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(category.Name)
	category.Slug = strings.TrimSpace(category.Slug)
	category.Description = strings.TrimSpace(category.Description)
	if category.Name == "" {
		return nil, errors.New("category name is required")
	}
	if category.Slug == "" {
		return nil, errors.New("category slug is required")
	}
	category.CreatedAt = s.now()

	err = s.DB.QueryRowContext(ctx, `
		INSERT INTO categories (name, slug, description, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, category.Name, category.Slug, nullString(category.Description), category.CreatedAt.Unix()).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %s: %w", category.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("store category: %w", err)
	}
	return &category, nil
}

// DeleteCategory removes a category. Its posts remain, uncategorized.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET category_id = NULL WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("detach posts from category: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := expectAffected(res, "category"); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*core.Category, error) {
	var (
		category    core.Category
		description sql.NullString
		createdAt   int64
	)
	if err := row.Scan(&category.ID, &category.Name, &category.Slug, &description, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	category.Description = description.String
	category.CreatedAt = fromUnix(createdAt)
	return &category, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
