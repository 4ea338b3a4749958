package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/storage/sqlite/migrations"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count == 1
}

func TestNewMigratorRequiresDB(t *testing.T) {
	_, err := migrations.NewMigrator(migrations.MigratorConfig{Logger: log.Noop})
	assert.Error(t, err)
}

func TestMigratorUpDown(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(err)
	defer db.Close()

	m, err := migrations.NewMigrator(migrations.MigratorConfig{DB: db})
	require.NoError(err)

	v, _, err := m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(0), v)

	require.NoError(m.Up(ctx))
	v, dirty, err := m.Version(ctx)
	require.NoError(err)
	assert.Equal(uint(1), v)
	assert.False(dirty)
	assert.True(tableExists(t, db, "blobs"))
	assert.True(tableExists(t, db, "blob_revisions"))

	// Running again without pending migrations is not an error.
	require.NoError(m.Up(ctx))

	require.NoError(m.Down(ctx))
	assert.False(tableExists(t, db, "blobs"))
	assert.False(tableExists(t, db, "blob_revisions"))
}
