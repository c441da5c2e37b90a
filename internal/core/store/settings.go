package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kundliinsight/kundli/internal/core"
)

const (
	settingSiteName         = "site.name"
	settingSiteDescription  = "site.description"
	settingSiteKeywords     = "site.keywords"
	settingCategoriesSeeded = "seed.categories"
)

// GetSiteSettings returns the stored site metadata. Unset fields are empty.
func (s *Store) GetSiteSettings(ctx context.Context) (core.SiteSettings, error) {
	ctx, err := s.ready(ctx)
	if err != nil {
		return core.SiteSettings{}, err
	}

	var settings core.SiteSettings
	if settings.Name, err = s.getSetting(ctx, settingSiteName); err != nil {
		return settings, err
	}
	if settings.Description, err = s.getSetting(ctx, settingSiteDescription); err != nil {
		return settings, err
	}
	keywords, err := s.getSetting(ctx, settingSiteKeywords)
	if err != nil {
		return settings, err
	}
	if keywords != "" {
		settings.Keywords = core.SplitKeywords(keywords)
	}
	return settings, nil
}

// SaveSiteSettings stores the non-empty fields of settings.
func (s *Store) SaveSiteSettings(ctx context.Context, settings core.SiteSettings) error {
	ctx, err := s.ready(ctx)
	if err != nil {
		return err
	}
	values := map[string]string{
		settingSiteName:        strings.TrimSpace(settings.Name),
		settingSiteDescription: strings.TrimSpace(settings.Description),
		settingSiteKeywords:    strings.Join(settings.Keywords, ", "),
	}
	for key, value := range values {
		if value == "" {
			continue
		}
		if err := s.setSetting(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("fetch setting %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) setSetting(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, s.now().Unix())
	if err != nil {
		return fmt.Errorf("store setting %s: %w", key, err)
	}
	return nil
}
