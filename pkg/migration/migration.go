package migration

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

type Runner struct {
	db     *sql.DB
	source fs.FS
	dir    string
}

// NewRunner returns a runner over the bundled migrations.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, source: migrationFS, dir: "migrations"}
}

// NewRunnerFS returns a runner reading NNNN_name.{up,down}.sql files from dir in source.
func NewRunnerFS(db *sql.DB, source fs.FS, dir string) *Runner {
	return &Runner{db: db, source: source, dir: dir}
}

// Run applies every pending up migration in version order.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureSchemaTable(ctx); err != nil {
		return fmt.Errorf("failed to create schema table: %w", err)
	}

	migrations, err := r.loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	currentVersion, dirty, err := r.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", currentVersion)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		if err := r.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}
	}

	return nil
}

func (r *Runner) ensureSchemaTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			dirty BOOLEAN NOT NULL DEFAULT FALSE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func (r *Runner) loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(r.source, r.dir)
	if err != nil {
		return nil, err
	}

	migrationMap := make(map[int]*Migration)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, migrationName, direction, err := parseMigrationFilename(entry.Name())
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(r.source, path.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		if migrationMap[version] == nil {
			migrationMap[version] = &Migration{Version: version, Name: migrationName}
		}

		switch direction {
		case "up":
			migrationMap[version].UpSQL = string(content)
		case "down":
			migrationMap[version].DownSQL = string(content)
		}
	}

	var migrations []Migration
	for _, migration := range migrationMap {
		if migration.UpSQL != "" {
			migrations = append(migrations, *migration)
		}
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func parseMigrationFilename(filename string) (version int, name, direction string, err error) {
	name = strings.TrimSuffix(filename, ".sql")
	parts := strings.Split(name, ".")

	if len(parts) != 2 {
		return 0, "", "", fmt.Errorf("invalid migration filename format")
	}

	direction = parts[1]
	if direction != "up" && direction != "down" {
		return 0, "", "", fmt.Errorf("invalid direction: %s", direction)
	}

	nameParts := strings.Split(parts[0], "_")
	if len(nameParts) < 2 {
		return 0, "", "", fmt.Errorf("invalid migration name format")
	}

	version, err = strconv.Atoi(nameParts[0])
	if err != nil {
		return 0, "", "", fmt.Errorf("invalid version number: %w", err)
	}

	name = strings.Join(nameParts[1:], "_")
	return version, name, direction, nil
}

// CurrentVersion reports the highest applied version and whether it is dirty.
func (r *Runner) CurrentVersion(ctx context.Context) (version int, dirty bool, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT version, dirty
		FROM schema_migrations
		ORDER BY version DESC
		LIMIT 1
	`)

	err = row.Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return version, dirty, nil
}

func (r *Runner) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, dirty) VALUES (?, TRUE)`, migration.Version); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, migration.UpSQL); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE schema_migrations SET dirty = FALSE WHERE version = ?`, migration.Version); err != nil {
		return err
	}

	return tx.Commit()
}

// Force clears the dirty flag for version after a manual fix.
func (r *Runner) Force(ctx context.Context, version int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE schema_migrations SET dirty = FALSE WHERE version = ?`, version)
	return err
}
