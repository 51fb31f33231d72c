// Package journal records print runs in SQLite.
//
// Each run gets a UUID row with its printer, script, planned totals, and
// final status; every unit that reached the printer adds a row with its
// offset and size. The journal is an audit trail for `thermalsub history`.
// Nothing is resumed from it after a restart.
package journal
