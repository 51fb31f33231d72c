package failures_test

import (
	"errors"
	"strings"
	"testing"

	"thermalsub/internal/failures"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failures.Wrap(failures.ErrTransport, "playback", "write", "printer rejected job", base)
	if !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"playback", "write", "printer rejected job"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerOrCause(t *testing.T) {
	err := failures.Wrap(nil, "", "", "", nil)
	if err == nil || err.Error() != "failure" {
		t.Fatalf("unexpected error %v", err)
	}
	if failures.Kind(err) != "internal" {
		t.Fatalf("expected internal kind, got %q", failures.Kind(err))
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{failures.Wrap(failures.ErrParse, "subtitles", "parse", "bad time line", nil), 2},
		{failures.Wrap(failures.ErrAsset, "raster", "load", "", errors.New("missing")), 3},
		{failures.Wrap(failures.ErrEncoding, "escpos", "encode", "", nil), 4},
		{failures.Wrap(failures.ErrTransport, "playback", "write", "", nil), 5},
		{failures.Wrap(failures.ErrConfiguration, "config", "validate", "", nil), 6},
		{failures.Wrap(failures.ErrBusy, "transport", "lock", "", nil), 7},
		{errors.New("plain"), 1},
	}
	for _, tt := range tests {
		if got := failures.ExitCode(tt.err); got != tt.want {
			t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
