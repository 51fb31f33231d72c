// Package logging assembles the slog loggers used across thermalsub.
//
// It owns the console and JSON handlers, level parsing, and output fan-out to
// the terminal plus an optional log file. Components tag themselves with
// NewComponentLogger so console lines read "component: message", and a run's
// identifier is attached once with WithRun.
package logging
