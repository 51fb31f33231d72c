package transport

import (
	"context"
	"fmt"
	"time"

	"thermalsub/internal/config"
	"thermalsub/internal/failures"
)

// Printer opens handles on a named printer target.
type Printer interface {
	Open(ctx context.Context, name string) (Handle, error)
}

// Handle is an open printer. Calls are synchronous and never concurrent.
type Handle interface {
	BeginJob(title string) error
	Write(p []byte) (int, error)
	EndJob() error
	Close() error
}

// Options selects and configures a transport implementation.
type Options struct {
	Kind        string
	LPBinary    string
	DialTimeout time.Duration
}

// OptionsFromConfig maps the printer section of cfg to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Kind:        cfg.Printer.Transport,
		LPBinary:    cfg.Printer.LPBinary,
		DialTimeout: cfg.DialTimeout(),
	}
}

// New returns the Printer for opts.Kind. An empty kind selects cups.
func New(opts Options) (Printer, error) {
	switch opts.Kind {
	case "", config.TransportCUPS:
		return NewCUPS(opts.LPBinary), nil
	case config.TransportDevice:
		return Device{}, nil
	case config.TransportFile:
		return File{}, nil
	case config.TransportTCP:
		return NewTCP(opts.DialTimeout), nil
	default:
		return nil, failures.Wrap(failures.ErrConfiguration, "transport", "select", fmt.Sprintf("unknown transport %q", opts.Kind), nil)
	}
}

func transportError(operation, target string, err error) error {
	return failures.Wrap(failures.ErrTransport, "transport", operation, target, err)
}

// jobState tracks BeginJob/EndJob pairing shared by all handles.
type jobState struct {
	open   bool
	closed bool
	title  string
}

func (s *jobState) begin(target, title string) error {
	if s.closed {
		return transportError("begin job", target, errHandleClosed)
	}
	if s.open {
		return transportError("begin job", target, errJobOpen)
	}
	s.open = true
	s.title = title
	return nil
}

func (s *jobState) requireOpen(operation, target string) error {
	if s.closed {
		return transportError(operation, target, errHandleClosed)
	}
	if !s.open {
		return transportError(operation, target, errNoJob)
	}
	return nil
}
