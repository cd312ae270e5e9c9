package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"boardwatch/internal/services"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Run is one recorded job execution.
type Run struct {
	ID         string
	Job        string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
	Counters   map[string]int
}

// Duration is the elapsed run time, zero while the run is active.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Point is one classification history sample.
type Point struct {
	RunID      string
	RecordedAt time.Time
	Percentage float64
	Analyzed   int
	Flagged    int
}

// Ledger is the SQLite-backed run and history store.
type Ledger struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or connects to the ledger database at path and applies migrations.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "ledger", "open", "create directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	l := &Ledger{db: db, path: path, now: time.Now}
	if err := l.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Path returns the database file location.
func (l *Ledger) Path() string {
	return l.path
}

// StartRun inserts a running row for job and returns it with a fresh id.
func (l *Ledger) StartRun(ctx context.Context, job string) (Run, error) {
	return l.StartRunWithID(ctx, uuid.NewString(), job)
}

// StartRunWithID is StartRun with a caller-chosen id.
func (l *Ledger) StartRunWithID(ctx context.Context, id, job string) (Run, error) {
	if strings.TrimSpace(id) == "" {
		return Run{}, errors.New("run id is required")
	}
	run := Run{ID: id, Job: job, Status: StatusRunning, StartedAt: l.now().UTC()}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.Job, run.Status, run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks the run succeeded, or failed when runErr is non-nil.
func (l *Ledger) FinishRun(ctx context.Context, id string, runErr error, counters map[string]int) error {
	status := StatusSucceeded
	var message any
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	var countersJSON any
	if len(counters) > 0 {
		data, err := json.Marshal(counters)
		if err != nil {
			return fmt.Errorf("marshal counters: %w", err)
		}
		countersJSON = string(data)
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ?, counters_json = ? WHERE id = ?`,
		status, l.now().UTC().Format(timeLayout), message, countersJSON, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "ledger", "finish run", "unknown run "+id, nil)
	}
	return nil
}

// ReconcileInterrupted marks rows left running by a previous process as
// interrupted and returns how many were updated.
func (l *Ledger) ReconcileInterrupted(ctx context.Context) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE status = ?`,
		StatusInterrupted, l.now().UTC().Format(timeLayout), "process exited before the run finished", StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reconcile runs: %w", err)
	}
	return res.RowsAffected()
}

// GetRun fetches a run by id.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, services.Wrap(services.ErrNotFound, "ledger", "get run", "unknown run "+id, nil)
	}
	return run, err
}

// RecentRuns lists up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AddClassificationPoint appends a history sample. RecordedAt defaults to now.
func (l *Ledger) AddClassificationPoint(ctx context.Context, p Point) error {
	if p.RecordedAt.IsZero() {
		p.RecordedAt = l.now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO classification_history (run_id, recorded_at, percentage, analyzed, flagged) VALUES (?, ?, ?, ?, ?)`,
		nullableString(p.RunID), p.RecordedAt.UTC().Format(timeLayout), p.Percentage, p.Analyzed, p.Flagged,
	)
	if err != nil {
		return fmt.Errorf("insert classification point: %w", err)
	}
	return nil
}

// RecentClassification returns up to n history samples, oldest first.
func (l *Ledger) RecentClassification(ctx context.Context, n int) ([]Point, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, recorded_at, percentage, analyzed, flagged FROM classification_history
         ORDER BY recorded_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list classification history: %w", err)
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var (
			p        Point
			runID    sql.NullString
			recorded string
		)
		if err := rows.Scan(&runID, &recorded, &p.Percentage, &p.Analyzed, &p.Flagged); err != nil {
			return nil, fmt.Errorf("scan classification point: %w", err)
		}
		p.RunID = runID.String
		if t, err := time.Parse(timeLayout, recorded); err == nil {
			p.RecordedAt = t
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}
