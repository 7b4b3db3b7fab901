// Package tracedb is a small modernc.org/sqlite-backed recorder for
// the kitchen's resolution steps, grounded on shoal/internal/database.
// DB's New/Migrate shape: a *sql.DB wrapper with an explicit migration
// function run at startup. This is genuinely optional instrumentation
// for cmd/dumpdiff's -trace flag, not part of the resolution engine
// itself — pkg/diffs/kitchen depends only on the small TraceRecorder
// interface it declares, never on this package.
package tracedb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Recorder wraps a SQLite connection and implements
// pkg/diffs/kitchen.TraceRecorder.
type Recorder struct {
	conn  *sql.DB
	runID string
}

// New opens (creating if necessary) a SQLite database at dbPath for
// recording resolution steps under runID.
func New(dbPath string, runID string) (*Recorder, error) {
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping trace database: %w", err)
	}
	return &Recorder{conn: conn, runID: runID}, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	return r.conn.Close()
}

// Migrate creates the resolution_steps table if it does not already
// exist.
func (r *Recorder) Migrate(ctx context.Context) error {
	slog.Info("running trace database migrations")
	_, err := r.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS resolution_steps (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		item_sortkey TEXT NOT NULL,
		recipe_name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		ts DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to migrate trace database: %w", err)
	}
	_, err = r.conn.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_resolution_steps_run_id ON resolution_steps(run_id)`)
	if err != nil {
		return fmt.Errorf("failed to migrate trace database: %w", err)
	}
	return nil
}

// RecordStep implements pkg/diffs/kitchen.TraceRecorder. A failure to
// write a trace row is logged rather than propagated: resolution
// tracing must never abort a real run.
func (r *Recorder) RecordStep(itemSortKey, recipeName, outcome string, duration time.Duration) {
	_, err := r.conn.Exec(
		`INSERT INTO resolution_steps (run_id, item_sortkey, recipe_name, outcome, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		r.runID, itemSortKey, recipeName, outcome, duration.Milliseconds(),
	)
	if err != nil {
		slog.Warn("failed to record resolution trace step", "error", err)
	}
}

// Step is one recorded resolution step, returned by Summary for
// cmd/dumpdiff's post-run report.
type Step struct {
	ItemSortKey string
	RecipeName  string
	Outcome     string
	DurationMs  int64
	Timestamp   time.Time
}

// Summary returns every step recorded under runID, in recording order.
func (r *Recorder) Summary(ctx context.Context, runID string) ([]Step, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT item_sortkey, recipe_name, outcome, duration_ms, ts FROM resolution_steps WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trace summary: %w", err)
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var s Step
		if err := rows.Scan(&s.ItemSortKey, &s.RecipeName, &s.Outcome, &s.DurationMs, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan trace row: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
