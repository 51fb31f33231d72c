// Package failures defines the error taxonomy shared by every thermalsub stage.
//
// Errors are tagged with sentinel markers (parse, asset, encoding, transport,
// configuration, busy) so the CLI can classify a failure with errors.Is and
// choose an exit status without string matching. None of these failures are
// retried: the operator fixes the script or the printer and reruns.
package failures
