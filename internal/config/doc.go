// Package config loads, normalizes, and validates thermalsub configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the THERMALSUB_PRINTER environment fallback. Always
// obtain settings through this package so downstream code receives absolute
// paths, lower-cased enum values, and clear validation errors.
package config
