// Package history keeps a SQLite log of generation passes.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded generation pass.
type Entry struct {
	ID           int64
	BuildID      string
	StartedAt    time.Time
	Duration     time.Duration
	Outcome      string
	FailedStage  string
	Error        string
	Units        int
	Outputs      int
	ConfigHash   string
	Revision     string
	ManifestHash string
}

// Store implements generation history using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens a history database.
// Use ":memory:" for an in-memory database, or a file path for persistent storage.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL UNIQUE,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		failed_stage TEXT,
		error TEXT,
		units INTEGER NOT NULL DEFAULT 0,
		outputs INTEGER NOT NULL DEFAULT 0,
		config_hash TEXT,
		revision TEXT,
		manifest_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_generations_started ON generations(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends an entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (build_id, started_at, duration_ms, outcome, failed_stage, error, units, outputs, config_hash, revision, manifest_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BuildID, e.StartedAt.UnixMilli(), e.Duration.Milliseconds(), e.Outcome, e.FailedStage, e.Error,
		e.Units, e.Outputs, e.ConfigHash, e.Revision, e.ManifestHash,
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get returns the entry for a build ID.
func (s *Store) Get(ctx context.Context, buildID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE build_id = ?", buildID)
	if err != nil {
		return Entry{}, false, fmt.Errorf("query generation: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

const selectColumns = `SELECT id, build_id, started_at, duration_ms, outcome, failed_stage, error, units, outputs, config_hash, revision, manifest_hash FROM generations`

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, durMS int64
		var stage, errText, cfgHash, rev, mHash sql.NullString
		if err := rows.Scan(&e.ID, &e.BuildID, &started, &durMS, &e.Outcome, &stage, &errText, &e.Units, &e.Outputs, &cfgHash, &rev, &mHash); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.FailedStage, e.Error = stage.String, errText.String
		e.ConfigHash, e.Revision, e.ManifestHash = cfgHash.String, rev.String, mHash.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}
