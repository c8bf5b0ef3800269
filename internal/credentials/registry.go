package credentials

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"missioncontrol/pkg/db"
	"missioncontrol/pkg/migration"
)

var errEmptySecretName = errors.New("secret name cannot be empty")

// Registry records which secret names have been stored so they can be listed
// without reading the keyring values themselves.
type Registry struct {
	pool *db.Pool
	now  func() time.Time
}

// OpenRegistry runs pending migrations and returns a registry over pool.
func OpenRegistry(ctx context.Context, pool *db.Pool) (*Registry, error) {
	if err := migration.NewRunner(pool.Write()).Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Registry{pool: pool, now: time.Now}, nil
}

func (r *Registry) Register(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errEmptySecretName
	}

	now := r.now().Unix()
	_, err := r.pool.Write().ExecContext(ctx,
		`INSERT INTO secrets(name, created_at, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET updated_at = ?`,
		trimmed, now, now, now)
	return err
}

func (r *Registry) Unregister(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errEmptySecretName
	}

	_, err := r.pool.Write().ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, trimmed)
	return err
}

// List returns registered names. The dashboard token is included when it
// exists in the keyring even if it was stored by another tool.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Read().QueryContext(ctx, `SELECT name FROM secrets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	exists, err := HasSecret(DashboardTokenName)
	if err != nil {
		return nil, err
	}
	if exists && !slices.Contains(names, DashboardTokenName) {
		names = append(names, DashboardTokenName)
		slices.Sort(names)
	}
	return names, nil
}

// Set stores value in the keyring and registers the name.
func (r *Registry) Set(ctx context.Context, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return errEmptySecretName
	}
	if err := SetSecret(name, value); err != nil {
		return err
	}
	return r.Register(ctx, name)
}

// Delete removes the secret from the keyring and the registry. A name missing
// from the keyring is still unregistered and ErrNotFound is returned.
func (r *Registry) Delete(ctx context.Context, name string) error {
	keyErr := DeleteSecret(name)
	if keyErr != nil && !errors.Is(keyErr, ErrNotFound) {
		return keyErr
	}
	if err := r.Unregister(ctx, name); err != nil {
		return errors.Join(keyErr, err)
	}
	return keyErr
}
