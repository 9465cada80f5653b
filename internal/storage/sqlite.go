package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Index is a queryable SQLite catalogue of saved runs. The file store stays
// the source of truth for trajectories.
type Index struct {
	db *sql.DB
}

// OpenIndex creates or opens the index database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	if x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Record inserts or replaces the run and its metrics.
func (x *Index) Record(ctx context.Context, meta RunMetadata) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, name, created_at, seed, stepper, field, status, reason, trigger_name, steps, path_length, momentum, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Timestamp.UnixNano(), meta.Seed, meta.Stepper, meta.Field,
		meta.Status, meta.Reason, meta.Trigger, meta.Steps, meta.PathLength, meta.Momentum, meta.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", meta.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_metrics WHERE run_id = ?`, meta.ID); err != nil {
		return err
	}
	for name, value := range meta.Metrics {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_metrics (run_id, name, value) VALUES (?, ?, ?)`,
			meta.ID, name, value,
		); err != nil {
			return fmt.Errorf("insert metric %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// Filter selects runs. Empty fields match everything.
type Filter struct {
	Name   string
	Status string
	Limit  int
}

// Runs returns matching runs newest first. Metrics, surfaces and the
// configuration are only kept in the file store.
func (x *Index) Runs(ctx context.Context, f Filter) ([]RunMetadata, error) {
	query := `
		SELECT id, name, created_at, seed, stepper, field, status, reason, trigger_name, steps, path_length, momentum, error
		FROM runs
		WHERE (? = '' OR name = ?) AND (? = '' OR status = ?)
		ORDER BY created_at DESC`
	args := []any{f.Name, f.Name, f.Status, f.Status}
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		var m RunMetadata
		var created int64
		if err := rows.Scan(&m.ID, &m.Name, &created, &m.Seed, &m.Stepper, &m.Field,
			&m.Status, &m.Reason, &m.Trigger, &m.Steps, &m.PathLength, &m.Momentum, &m.Error); err != nil {
			return nil, err
		}
		m.Timestamp = time.Unix(0, created)
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// StatusCounts counts indexed runs per status.
func (x *Index) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Metric returns one stored metric of a run.
func (x *Index) Metric(ctx context.Context, runID, name string) (float64, error) {
	var v float64
	err := x.db.QueryRowContext(ctx,
		`SELECT value FROM run_metrics WHERE run_id = ? AND name = ?`, runID, name,
	).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("%w: metric %s of %s", ErrRunNotFound, name, runID)
	}
	return v, err
}
