// Package runner is the top-level sequential driver behind the CLI.
//
// Compile loads a subtitle script, lays it out into fragments, applies latency
// compensation, and merges equal timestamps into units. Every input error
// surfaces here, before any byte reaches a printer. Print then claims the
// printer lock, optionally waits for the device node, opens a journal run,
// and plays the units in real time.
package runner
