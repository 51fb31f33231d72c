package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"thermalsub/internal/failures"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

// Journal persists run history in SQLite.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// RunInfo describes a run as it starts. A blank ID gets a fresh UUID.
type RunInfo struct {
	ID           string
	Printer      string
	Transport    string
	ScriptPath   string
	UnitsPlanned int
	BytesPlanned int
	Duration     time.Duration
}

// RunSummary is a stored run as returned by Recent.
type RunSummary struct {
	ID           string
	Printer      string
	Transport    string
	ScriptPath   string
	Status       Status
	UnitsPlanned int
	BytesPlanned int
	Duration     time.Duration
	UnitsPrinted int
	BytesPrinted int
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// UnitRecord is one unit delivered to the printer.
type UnitRecord struct {
	Seq       int
	Offset    time.Duration
	Bytes     int
	Lag       time.Duration
	PrintedAt time.Time
}

// Open creates or connects to the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
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
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path, now: time.Now}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path reports the database file location.
func (j *Journal) Path() string { return j.path }

// StartRun inserts a running row and returns a handle for recording progress.
func (j *Journal) StartRun(ctx context.Context, info RunInfo) (*Run, error) {
	id := info.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (
            id, printer, transport, script_path, status,
            units_planned, bytes_planned, duration_ms, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		info.Printer,
		info.Transport,
		info.ScriptPath,
		StatusRunning,
		info.UnitsPlanned,
		info.BytesPlanned,
		info.Duration.Milliseconds(),
		j.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{journal: j, ID: id}, nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Get fetches a single run by ID. It returns sql.ErrNoRows when absent.
func (j *Journal) Get(ctx context.Context, id string) (RunSummary, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// Units lists the printed units of a run in sequence order.
func (j *Journal) Units(ctx context.Context, runID string) ([]UnitRecord, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT seq, offset_ms, bytes, lag_ms, printed_at FROM units WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []UnitRecord
	for rows.Next() {
		var (
			u         UnitRecord
			offsetMS  int64
			lagMS     int64
			printedAt string
		)
		if err := rows.Scan(&u.Seq, &offsetMS, &u.Bytes, &lagMS, &printedAt); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Offset = time.Duration(offsetMS) * time.Millisecond
		u.Lag = time.Duration(lagMS) * time.Millisecond
		u.PrintedAt = parseTime(printedAt)
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

func (j *Journal) timestamp() string {
	return j.now().UTC().Format(time.RFC3339Nano)
}

// Run records progress for one started run.
type Run struct {
	journal *Journal
	ID      string
}

// UnitPrinted appends a unit row and bumps the run totals.
func (r *Run) UnitPrinted(ctx context.Context, unit UnitRecord) error {
	printedAt := unit.PrintedAt
	if printedAt.IsZero() {
		printedAt = r.journal.now()
	}
	tx, err := r.journal.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO units (run_id, seq, offset_ms, bytes, lag_ms, printed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, unit.Seq, unit.Offset.Milliseconds(), unit.Bytes, unit.Lag.Milliseconds(),
		printedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET units_printed = units_printed + 1, bytes_printed = bytes_printed + ? WHERE id = ?`,
		unit.Bytes, r.ID,
	); err != nil {
		return fmt.Errorf("update run totals: %w", err)
	}
	return tx.Commit()
}

// Finish stamps the final status derived from runErr.
func (r *Run) Finish(ctx context.Context, runErr error) error {
	status := StatusForError(runErr)
	var kind, message any
	if runErr != nil {
		kind = failures.Kind(runErr)
		message = strings.TrimSpace(runErr.Error())
	}
	res, err := r.journal.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error_kind = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, kind, message, r.journal.timestamp(), r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", r.ID, sql.ErrNoRows)
	}
	return nil
}

// StatusForError maps a run result to its terminal status.
func StatusForError(err error) Status {
	switch {
	case err == nil:
		return StatusFinished
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusCanceled
	default:
		return StatusFailed
	}
}
