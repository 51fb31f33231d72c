package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"thermalsub/internal/failures"
)

// Lock is an exclusive claim on a printer held for the duration of a run.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes a non-blocking exclusive lock on <dir>/<printer>.lock.
// It fails with failures.ErrBusy when another process already holds it.
func AcquireLock(dir, printer string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := LockPath(dir, printer)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire printer lock: %w", err)
	}
	if !ok {
		return nil, failures.Wrap(failures.ErrBusy, "transport", "lock", fmt.Sprintf("printer %q is in use (lock %s)", printer, path), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// LockPath returns the lock file used for printer.
func LockPath(dir, printer string) string {
	return filepath.Join(dir, lockToken(printer)+".lock")
}

// Path reports the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks the printer. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release printer lock: %w", err)
	}
	return nil
}

// lockToken maps a printer target (queue name, device path, host:port) to a
// file name component.
func lockToken(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-.")
	if out == "" {
		return "printer"
	}
	return out
}
