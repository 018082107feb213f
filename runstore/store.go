// Package runstore persists run history in a SQLite database. Each planner
// or executor run becomes one row; the encoded problem and the plan artifact
// are stored gzip-compressed alongside it so past runs can be replayed.
package runstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"

	"warehouseplanner/warehouse/service"
)

var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed run history store
type Store struct {
	db *sql.DB
}

// Open creates or opens the run database at path
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability for
	// a history store.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			scenario TEXT NOT NULL,
			outcome TEXT NOT NULL,
			plan_length INTEGER NOT NULL,
			applied INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, started_at);`,
		`CREATE TABLE IF NOT EXISTS artifacts (
			run_id TEXT PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			problem_gz BLOB,
			plan_gz BLOB
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores one run and its artifacts in a single transaction
func (s *Store) Record(ctx context.Context, rec *service.RunRecord) error {
	problemGz, err := compress(rec.Problem)
	if err != nil {
		return fmt.Errorf("compress problem: %w", err)
	}
	planGz, err := compress(rec.Plan)
	if err != nil {
		return fmt.Errorf("compress plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, session_id, scenario, outcome, plan_length, applied, duration_ms, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Scenario, rec.Outcome, rec.PlanLength, rec.Applied,
		rec.DurationMs, formatTime(rec.StartedAt), formatTime(rec.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if problemGz != nil || planGz != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO artifacts (run_id, problem_gz, plan_gz) VALUES (?, ?, ?)`,
			rec.ID, problemGz, planGz)
		if err != nil {
			return fmt.Errorf("insert artifacts: %w", err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns runs newest first. An empty sessionID returns runs
// across all sessions.
func (s *Store) RecentRuns(ctx context.Context, sessionID string, limit int) ([]*service.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, session_id, scenario, outcome, plan_length, applied, duration_ms, started_at, finished_at
		FROM runs`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*service.RunSummary
	for rows.Next() {
		var r service.RunSummary
		var started, finished string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Scenario, &r.Outcome, &r.PlanLength,
			&r.Applied, &r.DurationMs, &started, &finished); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, &r)
	}
	if out == nil {
		out = []*service.RunSummary{}
	}
	return out, rows.Err()
}

// RunArtifacts returns the decompressed problem and plan text for a run
func (s *Store) RunArtifacts(ctx context.Context, runID string) (problem, plan []byte, err error) {
	var problemGz, planGz []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT problem_gz, plan_gz FROM artifacts WHERE run_id = ?`, runID).
		Scan(&problemGz, &planGz)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, nil, err
	}

	if problem, err = decompress(problemGz); err != nil {
		return nil, nil, fmt.Errorf("decompress problem: %w", err)
	}
	if plan, err = decompress(planGz); err != nil {
		return nil, nil, fmt.Errorf("decompress plan: %w", err)
	}
	return problem, plan, nil
}

// Prune drops all but the newest keep runs. Artifacts go with their runs via
// the foreign key cascade.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
