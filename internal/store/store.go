// Package store implements the sqlite-backed persistence layer: features
// and their dependency/requirement/verification lists, config key-value
// pairs, the architecture document, and the pipeline session log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kilnforge/pipelinectl/internal/domain"
)

// ErrBusy indicates the database was locked past its busy_timeout.
var ErrBusy = errors.New("store: database busy")

// openDB is a package-level var so tests can substitute an in-memory driver.
var openDB = sql.Open

// Store is the persistence layer for the pipeline. All state a fresh
// process needs to resume work lives here.
type Store struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database under <projectRoot>/.pipelinectl/pipeline.db,
// applies pragmas, and runs migrations.
func Open(projectRoot string) (*Store, error) {
	dataDir := filepath.Join(projectRoot, ".pipelinectl")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pipeline.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	return open(db)
}

// OpenPath opens (or creates) the sqlite database at an explicit path,
// used by tests that want a temp-dir database or ":memory:".
func OpenPath(path string) (*Store, error) {
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	return open(db)
}

func open(db *sql.DB) (*Store, error) {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	if err := s.seedDefaultConfig(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: seed config: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS features (
			id                    TEXT PRIMARY KEY,
			category              TEXT NOT NULL DEFAULT '',
			description           TEXT NOT NULL,
			notes                 TEXT NOT NULL DEFAULT '',
			status                TEXT NOT NULL CHECK (status IN (
			                          'pending','in-dev','ready-for-review','approved',
			                          'needs-revision','qa-testing','pr-open','complete'
			                      )),
			assigned_to           TEXT NOT NULL DEFAULT '',
			reviewed_by           TEXT NOT NULL DEFAULT '',
			tested_by             TEXT NOT NULL DEFAULT '',
			passes                INTEGER NOT NULL DEFAULT 0,
			openspec_change_id    TEXT NOT NULL DEFAULT '',
			openspec_task_group   INTEGER NOT NULL DEFAULT 0,
			openspec_reference    TEXT NOT NULL DEFAULT '',
			pr_number             INTEGER NOT NULL DEFAULT 0,
			created_at            TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
			updated_at            TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_features_openspec_key
			ON features(openspec_change_id, openspec_task_group)
			WHERE openspec_change_id != '';

		CREATE INDEX IF NOT EXISTS idx_features_status ON features(status);

		CREATE TABLE IF NOT EXISTS feature_depends_on (
			feature_id TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
			depends_on TEXT NOT NULL,
			position   INTEGER NOT NULL,
			PRIMARY KEY (feature_id, depends_on)
		);

		CREATE TABLE IF NOT EXISTS feature_requirements (
			feature_id TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			value      TEXT NOT NULL,
			PRIMARY KEY (feature_id, position)
		);

		CREATE TABLE IF NOT EXISTS feature_architecture_compliance (
			feature_id TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			value      TEXT NOT NULL,
			PRIMARY KEY (feature_id, position)
		);

		CREATE TABLE IF NOT EXISTS feature_verification_steps (
			feature_id TEXT NOT NULL REFERENCES features(id) ON DELETE CASCADE,
			position   INTEGER NOT NULL,
			value      TEXT NOT NULL,
			PRIMARY KEY (feature_id, position)
		);

		CREATE TABLE IF NOT EXISTS config (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS architecture_blobs (
			kind       TEXT PRIMARY KEY,
			content    TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);

		CREATE TABLE IF NOT EXISTS pipeline_sessions (
			id          TEXT PRIMARY KEY,
			started_at  TEXT NOT NULL,
			ended_at    TEXT,
			mode        TEXT NOT NULL DEFAULT '',
			auto_merge  INTEGER NOT NULL DEFAULT 0,
			outcome     TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS pipeline_session_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES pipeline_sessions(id) ON DELETE CASCADE,
			feature_id TEXT NOT NULL DEFAULT '',
			action     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_session_events_session ON pipeline_session_events(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

var defaultConfig = map[string]string{
	"execution_mode":            "guided",
	"model":                     "",
	"max_retries":               "3",
	"max_agent_turns":           "40",
	"features_per_lead_session": "1",
	"auto_merge":                "false",
	"safe_mode":                 "true",
	"openspec_auto_archive":     "true",
	"openspec_auto_import":      "false",
	"agent_backend":             "aider",
	"agent_backend_bin":         "aider",
}

func (s *Store) seedDefaultConfig() error {
	for key, value := range defaultConfig {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)`, key, value,
		); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn inside a transaction begun with database/sql's default
// options (a plain BEGIN; no IMMEDIATE or EXCLUSIVE lock is requested).
// Retrying is not this layer's job: a SQLITE_BUSY here surfaces as ErrBusy
// after the driver's own busy_timeout has already been exhausted.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return ErrBusy
		}
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		if isBusy(err) {
			return ErrBusy
		}
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

func wrapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}
