package linkexport

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/otherjamesbrown/penf-tracelink/pkg/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// MigrationResult holds the result of a migration run.
type MigrationResult struct {
	Applied []string
	Skipped []string
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS tlr_schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrations returns the embedded migrations in version order.
func Migrations() ([]Migration, error) {
	return loadMigrations(migrationFiles, "migrations")
}

// loadMigrations reads every .sql file in dir. Files sort by name, so use
// numeric prefixes like 001_.
func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			return nil, fmt.Errorf("migration %s is empty", name)
		}
		migrations = append(migrations, Migration{
			Version: normalizeVersion(name),
			Name:    name,
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// normalizeVersion strips a case-insensitive .sql suffix.
func normalizeVersion(v string) string {
	if len(v) > 4 && strings.ToLower(v[len(v)-4:]) == ".sql" {
		return v[:len(v)-4]
	}
	return v
}

// EnsureSchema applies every pending embedded migration.
func (e *Exporter) EnsureSchema(ctx context.Context) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}
	_, err = e.Migrate(ctx, migrations)
	return err
}

// Migrate applies migrations in order, each in its own transaction. A
// migration is claimed by inserting its version first, so concurrent runs
// apply it once. It stops at the first failure.
func (e *Exporter) Migrate(ctx context.Context, migrations []Migration) (*MigrationResult, error) {
	if err := e.execInTx(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	result := &MigrationResult{}
	for _, m := range migrations {
		applied, err := e.applyMigration(ctx, m)
		if err != nil {
			return result, fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		if !applied {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		result.Applied = append(result.Applied, m.Version)
	}

	if len(result.Applied) > 0 {
		e.logger.Info("schema migrated",
			logging.F("applied", result.Applied),
			logging.F("skipped", len(result.Skipped)),
		)
	}
	return result, nil
}

func (e *Exporter) applyMigration(ctx context.Context, m Migration) (bool, error) {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"INSERT INTO tlr_schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING",
		m.Version,
	)
	if err != nil {
		return false, fmt.Errorf("recording migration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("executing SQL: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}
	return true, nil
}

func (e *Exporter) execInTx(ctx context.Context, sql string) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, sql); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
