// Package store keeps a history of integration runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mc-integrator/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	integrand      TEXT NOT NULL,
	a              REAL NOT NULL,
	b              REAL NOT NULL,
	samples        INTEGER NOT NULL,
	seed           TEXT NOT NULL,
	workers        INTEGER NOT NULL,
	estimate       REAL NOT NULL,
	reference      REAL NOT NULL,
	error_bound    REAL NOT NULL,
	method         TEXT NOT NULL,
	absolute_error REAL NOT NULL,
	relative_error REAL,
	report_json    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// timeFormat is fixed-width so created_at sorts as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Summary is one row of the run history.
type Summary struct {
	RunID         string
	CreatedAt     time.Time
	Integrand     string
	Interval      domain.Interval
	Samples       int
	Seed          uint64
	Workers       int
	Estimate      float64
	Reference     float64
	ErrorBound    float64
	Method        string
	AbsoluteError float64
	// RelativeError is invalid when the reference was zero.
	RelativeError sql.NullFloat64
}

// Store manages the run history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save records r, assigning a run ID and timestamp when they are unset, and
// returns the run ID.
func (s *Store) Save(ctx context.Context, r domain.Report) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	rel := sql.NullFloat64{Float64: r.RelativeError, Valid: r.RelativeErrorDefined}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, created_at, integrand, a, b, samples, seed, workers,
			estimate, reference, error_bound, method, absolute_error, relative_error, report_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt.UTC().Format(timeFormat), r.Integrand, r.Interval.A, r.Interval.B,
		r.Samples, strconv.FormatUint(r.Seed, 10), r.Workers,
		r.Estimate, r.Reference, r.ErrorBound, r.QuadratureMethod, r.AbsoluteError, rel, string(body),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.RunID, nil
}

// Get returns the full report of one run.
func (s *Store) Get(ctx context.Context, runID string) (domain.Report, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, fmt.Errorf("%s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return domain.Report{}, fmt.Errorf("query run: %w", err)
	}
	var r domain.Report
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return domain.Report{}, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return r, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, created_at, integrand, a, b, samples, seed, workers,
			estimate, reference, error_bound, method, absolute_error, relative_error
		 FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			createdAt string
			seed      string
		)
		if err := rows.Scan(&sum.RunID, &createdAt, &sum.Integrand, &sum.Interval.A, &sum.Interval.B,
			&sum.Samples, &seed, &sum.Workers, &sum.Estimate, &sum.Reference, &sum.ErrorBound,
			&sum.Method, &sum.AbsoluteError, &sum.RelativeError); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: bad created_at %q: %w", sum.RunID, createdAt, err)
		}
		if sum.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s: bad seed %q: %w", sum.RunID, seed, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
