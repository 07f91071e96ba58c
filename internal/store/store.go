// Package store owns the on-device SQLite database: schema, migrations,
// and typed query functions over the notes and workspaces tables.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/notefold.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.notefold.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas go in the connection string so they apply to every connection
	// in the pool.
	dbPath := filepath.Join(baseDir, "notefold.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS workspaces (
		  name       TEXT PRIMARY KEY,
		  owner      TEXT NOT NULL,
		  repo       TEXT NOT NULL,
		  branch     TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS notes (
		  id          TEXT PRIMARY KEY,
		  workspace   TEXT NOT NULL,
		  content     TEXT NOT NULL,
		  tags_json   TEXT,
		  title       TEXT,
		  is_template INTEGER NOT NULL DEFAULT 0,
		  deleted     INTEGER NOT NULL DEFAULT 0,
		  deleted_at  INTEGER,
		  created_at  INTEGER NOT NULL,
		  updated_at  INTEGER NOT NULL,
		  remote_sha  TEXT NOT NULL DEFAULT '',
		  sync_status TEXT NOT NULL DEFAULT 'pending',
		  sync_error  TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_notes_workspace_updated
		ON notes(workspace, updated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_notes_workspace_status
		ON notes(workspace, sync_status);

		CREATE TABLE IF NOT EXISTS note_tags (
		  note_id TEXT NOT NULL,
		  tag     TEXT NOT NULL,
		  PRIMARY KEY (note_id, tag)
		);

		CREATE INDEX IF NOT EXISTS idx_note_tags_tag
		ON note_tags(tag, note_id);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
