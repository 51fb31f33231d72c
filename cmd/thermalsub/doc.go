// Command thermalsub prints subtitle scripts on ESC/POS thermal printers in
// sync with playback.
//
// Subcommands:
//
//	print [PRINTER] SCRIPT   play a script on a printer in real time
//	plan SCRIPT              compile a script and show the unit schedule
//	check [PRINTER]          run environment and printer preflight checks
//	history                  list recent runs from the journal
//	config init|validate     manage the TOML configuration file
package main
