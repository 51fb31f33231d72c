package failures

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse marks a malformed subtitle track. Raised before the pipeline starts.
	ErrParse = errors.New("parse error")
	// ErrAsset marks a missing or undecodable image referenced by the script.
	ErrAsset = errors.New("asset error")
	// ErrEncoding marks subtitle text that cannot be expressed in the printer charset.
	ErrEncoding = errors.New("encoding error")
	// ErrTransport marks an open/write/close failure against the printer.
	ErrTransport = errors.New("transport error")
	// ErrConfiguration marks invalid settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrBusy marks a printer already claimed by another run.
	ErrBusy = errors.New("printer busy")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err == nil {
			return errors.New(detail)
		}
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short classification label for err, or "internal" when no
// marker is attached.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrAsset):
		return "asset"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "internal"
	}
}

// ExitCode maps an error to the process exit status reported by the CLI.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		return 0
	case "parse":
		return 2
	case "asset":
		return 3
	case "encoding":
		return 4
	case "transport":
		return 5
	case "configuration":
		return 6
	case "busy":
		return 7
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
