// Package history records harness run outcomes in a SQLite database so
// pass/fail trends survive across invocations.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the run-history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path, applying pragmas
// and the schema. Safe to call repeatedly on the same file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to history database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Run is one recorded harness invocation.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	NotChecked int       `json:"not_checked"`
	Omitted    int       `json:"omitted"`
}

// ScriptOutcome is one script's result within a run.
type ScriptOutcome struct {
	Script  string
	Outcome string
	Elapsed time.Duration
}

// RecordRun stores a run and its per-script outcomes in one transaction
// and returns the run id, generating one when the caller left it empty.
func (s *Store) RecordRun(run Run, scripts []ScriptOutcome) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}
	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, started_at, passed, failed, not_checked, omitted)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, startedAt.UTC().Format(time.RFC3339Nano),
		run.Passed, run.Failed, run.NotChecked, run.Omitted,
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, sc := range scripts {
		if _, err := tx.Exec(
			`INSERT INTO run_scripts (run_id, script, outcome, elapsed_ms)
			 VALUES (?, ?, ?, ?)`,
			id, sc.Script, sc.Outcome, sc.Elapsed.Milliseconds(),
		); err != nil {
			return "", fmt.Errorf("insert script outcome: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, passed, failed, not_checked, omitted
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt string
		if err := rows.Scan(&r.ID, &startedAt, &r.Passed, &r.Failed, &r.NotChecked, &r.Omitted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListScripts returns the per-script outcomes of one run in insert order.
func (s *Store) ListScripts(runID string) ([]ScriptOutcome, error) {
	rows, err := s.db.Query(
		`SELECT script, outcome, elapsed_ms FROM run_scripts
		 WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	var scripts []ScriptOutcome
	for rows.Next() {
		var sc ScriptOutcome
		var elapsedMS int64
		if err := rows.Scan(&sc.Script, &sc.Outcome, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan script outcome: %w", err)
		}
		sc.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		scripts = append(scripts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}
