package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/kundliinsight/kundli/internal/config"
)

const (
	driverLibsql = "libsql"
	memoryDSN    = ":memory:"
)

// Sentinel errors returned by store lookups and writes.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	errNotInitialized     = errors.New("store is not initialized")
)

// Store holds the site's content, admin accounts, sessions, settings and
// contact messages.
type Store struct {
	DB     *sql.DB
	driver string

	// Now is the clock used for timestamps and expiry checks.
	Now func() time.Time
}

// Open connects to the database described by cfg. Embedded files get a
// single writer connection in WAL mode; remote libsql URLs are used as given.
// Schema setup is separate, see Migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}
	if driver != driverLibsql {
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}

	dsn, err := buildLibsqlDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}

	setup := func() error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping libsql store: %w", err)
		}
		if dsn == memoryDSN || strings.HasPrefix(dsn, "file:") {
			return tuneEmbedded(ctx, db)
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db, driver: driver, Now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errNotInitialized
	}
	return s.DB.PingContext(ctx)
}

func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// buildLibsqlDSN prefers a remote URL (with the auth token added to its
// query) and otherwise turns Path into a file: DSN, creating its directory.
func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if remote := strings.TrimSpace(cfg.URL); remote != "" {
		return withAuthToken(remote, strings.TrimSpace(cfg.AuthToken))
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == memoryDSN, strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		u, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid store path: %w", err)
		}
		local := u.Path
		if local == "" {
			local = u.Opaque
		}
		return path, mkStoreDir(strings.TrimPrefix(local, "//"))
	default:
		return "file:" + filepath.Clean(path), mkStoreDir(path)
	}
}

func withAuthToken(dsn, token string) (string, error) {
	if token == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}
	q := u.Query()
	if q.Get("authToken") != "" {
		return dsn, nil
	}
	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func mkStoreDir(path string) error {
	dir := filepath.Dir(filepath.Clean(path))
	if path == "" || dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	// #nosec G301 -- data directory shared with the operator's tooling
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// tuneEmbedded serializes writers on an embedded database. SQLite allows one
// writer; extra connections fail with SQLITE_BUSY.
func tuneEmbedded(ctx context.Context, db *sql.DB) error {
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		// journal_mode answers with a row, the others may not.
		var discard sql.NullString
		if err := db.QueryRowContext(ctx, pragma).Scan(&discard); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("configure local store (%s): %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) ready(ctx context.Context) (context.Context, error) {
	if s == nil || s.DB == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE CONSTRAINT")
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromUnix(v int64) time.Time {
	return time.Unix(v, 0).UTC()
}
