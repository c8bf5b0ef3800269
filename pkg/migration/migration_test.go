package migration

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missioncontrol/pkg/db"
)

func openPool(t *testing.T) *db.Pool {
	t.Helper()
	pool, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestRunner_BundledMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := openPool(t)

	runner := NewRunner(pool.Write())
	require.NoError(t, runner.Run(ctx))
	require.NoError(t, runner.Run(ctx))

	version, dirty, err := runner.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	assert.False(t, dirty)

	for _, table := range []string{"report_events", "secrets"} {
		var name string
		err := pool.Read().QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestRunner_FailedMigrationStopsAtPreviousVersion(t *testing.T) {
	ctx := context.Background()
	pool := openPool(t)

	source := fstest.MapFS{
		"m/0001_one.up.sql":   {Data: []byte(`CREATE TABLE one (id INTEGER);`)},
		"m/0002_two.up.sql":   {Data: []byte(`CREATE TABLE broken (`)},
		"m/0002_two.down.sql": {Data: []byte(`DROP TABLE broken;`)},
		"m/README.md":         {Data: []byte(`ignored`)},
	}

	runner := NewRunnerFS(pool.Write(), source, "m")
	err := runner.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 2 (two)")

	version, dirty, err := runner.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.False(t, dirty)
}

func TestParseMigrationFilename(t *testing.T) {
	version, name, direction, err := parseMigrationFilename("0007_add_index_on_agent.up.sql")
	require.NoError(t, err)
	assert.Equal(t, 7, version)
	assert.Equal(t, "add_index_on_agent", name)
	assert.Equal(t, "up", direction)

	for _, bad := range []string{"init.sql", "0001_x.sideways.sql", "abc_x.up.sql", "0001.up.sql"} {
		_, _, _, err := parseMigrationFilename(bad)
		assert.Error(t, err, bad)
	}
}
