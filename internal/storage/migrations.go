package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.1.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
	{
		Version: "1.1.0",
		Up:      migrationV11Up,
		Down:    migrationV11Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Runs table
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    opportunity TEXT NOT NULL,
    root_path TEXT NOT NULL,
    status TEXT NOT NULL,
    error TEXT,
    fragment_count INTEGER DEFAULT 0,
    failed_calls INTEGER DEFAULT 0,
    record_count INTEGER DEFAULT 0,
    theme_count INTEGER DEFAULT 0,
    gap_count INTEGER DEFAULT 0,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_opportunity ON runs(opportunity, status);

-- Fragments table
CREATE TABLE IF NOT EXISTS fragments (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    fragment_id TEXT NOT NULL,
    source_document TEXT NOT NULL,
    text TEXT NOT NULL,
    range_start INTEGER NOT NULL,
    range_end INTEGER NOT NULL,
    section_id TEXT,
    section_heading TEXT,
    page INTEGER,
    contains_bullets BOOLEAN DEFAULT 0,
    tags TEXT NOT NULL,
    PRIMARY KEY (run_id, fragment_id),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_fragments_run ON fragments(run_id, position);
CREATE INDEX IF NOT EXISTS idx_fragments_section ON fragments(run_id, section_id);

-- Sections table
CREATE TABLE IF NOT EXISTS sections (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    section_id TEXT NOT NULL,
    heading TEXT NOT NULL,
    page INTEGER,
    byte_offset INTEGER,
    source_document TEXT,
    covered BOOLEAN DEFAULT 0,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Canonical records table
CREATE TABLE IF NOT EXISTS records (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    record_key TEXT NOT NULL,
    fields TEXT NOT NULL,
    sources TEXT NOT NULL,
    PRIMARY KEY (run_id, record_key),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

-- Themes table
CREATE TABLE IF NOT EXISTS themes (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    label TEXT NOT NULL,
    keywords TEXT NOT NULL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

const migrationV1Down = `
DROP TABLE IF EXISTS themes;
DROP TABLE IF EXISTS records;
DROP TABLE IF EXISTS sections;
DROP TABLE IF EXISTS fragments;
DROP TABLE IF EXISTS runs;
DROP TABLE IF EXISTS schema_version;
`

const migrationV11Up = `
-- Compliance items table
CREATE TABLE IF NOT EXISTS compliance_items (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    kind TEXT NOT NULL,
    item_type TEXT,
    requirement TEXT NOT NULL,
    source TEXT,
    fragment_id TEXT,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_compliance_kind ON compliance_items(run_id, kind);
`

const migrationV11Down = `
DROP INDEX IF EXISTS idx_compliance_kind;
DROP TABLE IF EXISTS compliance_items;
`

// currentVersion returns the highest applied schema version, 0.0.0 when none
func currentVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	current := semver.MustParse("0.0.0")

	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)
	if err == sql.ErrNoRows {
		return current, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check schema_version table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_version")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_version: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid schema version %s: %w", s, err)
		}
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

// SchemaVersion reports the applied schema version
func SchemaVersion(ctx context.Context, db *sql.DB) (string, error) {
	v, err := currentVersion(ctx, db)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !current.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		current = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current.Equal(semver.MustParse("0.0.0")) {
		return fmt.Errorf("no migrations to rollback")
	}

	var migration *Migration
	for i := range AllMigrations {
		if semver.MustParse(AllMigrations[i].Version).Equal(current) {
			migration = &AllMigrations[i]
			break
		}
	}
	if migration == nil {
		return fmt.Errorf("migration %s not found", current)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
	}

	// The first migration drops schema_version itself
	if migration.Version == AllMigrations[0].Version {
		return nil
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", migration.Version, err)
	}
	return nil
}
