package credentials

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"missioncontrol/pkg/db"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()
	keyring.MockInit()

	ctx := context.Background()
	pool, err := db.Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	reg, err := OpenRegistry(ctx, pool)
	require.NoError(t, err)
	return reg
}

func TestRegisterSecret(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	require.NoError(t, reg.Register(ctx, "test-secret"))
	// Registering twice only bumps updated_at.
	require.NoError(t, reg.Register(ctx, "test-secret"))

	var count int
	require.NoError(t, reg.pool.Read().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM secrets WHERE name = ?`, "test-secret").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestUnregisterSecret(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	require.NoError(t, reg.Register(ctx, "gone"))
	require.NoError(t, reg.Unregister(ctx, "gone"))

	names, err := reg.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "gone")
}

func TestListSecrets(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	require.NoError(t, reg.Register(ctx, "zeta"))
	require.NoError(t, reg.Register(ctx, "alpha"))
	require.NoError(t, SetSecret(DashboardTokenName, "tok"))

	names, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DashboardTokenName, "alpha", "zeta"}, names)
}

func TestEmptySecretName(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	assert.ErrorIs(t, reg.Register(ctx, "  "), errEmptySecretName)
	assert.ErrorIs(t, reg.Unregister(ctx, ""), errEmptySecretName)
	assert.ErrorIs(t, reg.Set(ctx, "", "value"), errEmptySecretName)
}

func TestSetAndDelete(t *testing.T) {
	ctx := context.Background()
	reg := setupRegistry(t)

	require.NoError(t, reg.Set(ctx, DashboardTokenName, "  s3cret \n"))
	token, err := DashboardToken()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", token)

	require.NoError(t, reg.Delete(ctx, DashboardTokenName))
	token, err = DashboardToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	assert.ErrorIs(t, reg.Delete(ctx, DashboardTokenName), ErrNotFound)
}

func TestSetSecret_RejectsBlankValue(t *testing.T) {
	keyring.MockInit()
	assert.Error(t, SetSecret("x", "   "))
}
