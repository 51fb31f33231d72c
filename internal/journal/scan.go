package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const runColumns = "id, printer, transport, script_path, status, units_planned, bytes_planned, duration_ms, units_printed, bytes_printed, error_kind, error_message, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (RunSummary, error) {
	var (
		run          RunSummary
		status       string
		durationMS   int64
		errorKind    sql.NullString
		errorMessage sql.NullString
		startedRaw   string
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Printer,
		&run.Transport,
		&run.ScriptPath,
		&status,
		&run.UnitsPlanned,
		&run.BytesPlanned,
		&durationMS,
		&run.UnitsPrinted,
		&run.BytesPrinted,
		&errorKind,
		&errorMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTime(finishedRaw.String)
	}
	return run, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
