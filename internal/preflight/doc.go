// Package preflight provides readiness checks for the filesystem paths and
// printer transport that thermalsub depends on.
//
// The CLI "thermalsub check" command runs RunAll and renders the results as a
// table. Transport checks only cover the transport selected in config.
package preflight
