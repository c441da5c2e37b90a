//go:build cgo

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundliinsight/kundli/internal/config"
)

func TestOpenMemoryStore(t *testing.T) {
	st, err := Open(context.Background(), config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "libsql", st.Driver())
	assert.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Close())
}

func TestOpenEmbeddedFileIsTuned(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + t.TempDir() + "/kundli.db"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	assert.Equal(t, 1, st.DB.Stats().MaxOpenConnections)

	var journal string
	require.NoError(t, st.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journal))
	assert.Contains(t, journal, "wal")

	var busy, fk int
	require.NoError(t, st.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
	require.NoError(t, st.DB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.GreaterOrEqual(t, busy, 5000)
	assert.Equal(t, 1, fk)
}

func TestMigrateIsIdempotentAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Path: "file:" + t.TempDir() + "/kundli.db"}

	for i := 0; i < 2; i++ {
		st, err := Open(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, st.Migrate(ctx), "open %d", i)
		require.NoError(t, st.Close())
	}
}
