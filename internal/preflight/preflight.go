package preflight

import (
	"context"
	"strings"

	"thermalsub/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for cfg. printer overrides the
// configured printer target when non-empty.
func RunAll(ctx context.Context, cfg *config.Config, printer string) []Result {
	if cfg == nil {
		return nil
	}
	target := strings.TrimSpace(printer)
	if target == "" {
		target = cfg.Printer.Name
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
	}
	if cfg.Journal.Enabled {
		results = append(results, CheckJournal(cfg.Journal.Path))
	}
	return append(results, CheckTransport(ctx, cfg, target))
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
