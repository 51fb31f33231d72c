// Package subtitles reads SRT subtitle tracks into time-ordered records.
//
// Input may be UTF-8 (with or without a byte order mark) or UTF-16 with a BOM.
// Blocks are re-sorted by start time regardless of their order in the file.
package subtitles
