package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kundliinsight/kundli/internal/core"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_admin INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		content TEXT NOT NULL,
		excerpt TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		category_id INTEGER,
		author_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		published_at INTEGER
	);`,
	`CREATE INDEX IF NOT EXISTS idx_posts_status ON posts(status, created_at);`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
}

// DefaultCategories are created the first time the schema is migrated.
var DefaultCategories = []core.Category{
	{Name: "Kundali Tips", Slug: "kundali-tips", Description: "Practical tips for reading your birth chart"},
	{Name: "Astrology Basics", Slug: "astrology-basics", Description: "Planets, houses and signs explained"},
	{Name: "Remedies", Slug: "remedies", Description: "Traditional remedies and practices"},
	{Name: "Festival Guide", Slug: "festival-guide", Description: "Auspicious days and festival timings"},
}

// Migrate ensures the required database tables exist and seeds defaults.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	// Added after the first release.
	if err := s.ensureColumn(ctx, "posts", "featured_image", "TEXT"); err != nil {
		return err
	}

	return s.seedCategories(ctx)
}

func (s *Store) seedCategories(ctx context.Context) error {
	seeded, err := s.getSetting(ctx, settingCategoriesSeeded)
	if err != nil {
		return err
	}
	if seeded != "" {
		return nil
	}

	for _, category := range DefaultCategories {
		if _, err := s.CreateCategory(ctx, category); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed category %s: %w", category.Slug, err)
		}
	}
	return s.setSetting(ctx, settingCategoriesSeeded, "1")
}

func (s *Store) ensureColumn(ctx context.Context, table, column, columnDef string) error {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s schema: %w", table, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s columns: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s columns: %w", table, err)
	}

	if _, err := s.DB.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, columnDef)); err != nil {
		return fmt.Errorf("add %s.%s column: %w", table, column, err)
	}

	return nil
}
