package playback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"thermalsub/internal/escpos"
	"thermalsub/internal/logging"
	"thermalsub/internal/timeline"
	"thermalsub/internal/transport"
)

// DefaultJobTitle names each spooled job.
const DefaultJobTitle = "Line document"

// Event describes one unit that reached the printer.
type Event struct {
	Seq       int
	Offset    time.Duration
	Bytes     int
	Due       time.Time
	PrintedAt time.Time
	// Lag is how far behind schedule the job started. Zero when on time.
	Lag time.Duration
}

// Summary totals a completed or aborted Play call.
type Summary struct {
	Units   int
	Bytes   int
	MaxLag  time.Duration
	Elapsed time.Duration
}

// Player schedules units onto a printer transport.
type Player struct {
	printer  transport.Printer
	clock    Clock
	logger   *slog.Logger
	title    string
	observer func(Event)
}

// Option configures a Player.
type Option func(*Player)

// WithClock overrides the wall clock.
func WithClock(clock Clock) Option {
	return func(p *Player) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithLogger sets the logger used for per-unit debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logging.NewComponentLogger(logger, "playback")
	}
}

// WithJobTitle sets the title passed to BeginJob.
func WithJobTitle(title string) Option {
	return func(p *Player) {
		if title != "" {
			p.title = title
		}
	}
}

// WithObserver registers fn to run after every printed unit.
func WithObserver(fn func(Event)) Option {
	return func(p *Player) {
		p.observer = fn
	}
}

// New constructs a Player for printer.
func New(printer transport.Printer, opts ...Option) *Player {
	p := &Player{
		printer: printer,
		clock:   SystemClock(),
		logger:  logging.NewNop(),
		title:   DefaultJobTitle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play sends units to the printer named name. Units must be sorted by offset
// and are usually the output of timeline.Prepare. Transport failures abort the
// run without retry; units already printed stay printed.
func (p *Player) Play(ctx context.Context, name string, units []timeline.Fragment) error {
	_, err := p.PlayWithSummary(ctx, name, units)
	return err
}

// PlayWithSummary is Play that also reports totals, including for aborted runs.
func (p *Player) PlayWithSummary(ctx context.Context, name string, units []timeline.Fragment) (Summary, error) {
	var summary Summary
	if p.printer == nil {
		return summary, errors.New("playback: printer transport is nil")
	}
	if !timeline.Sorted(units) {
		return summary, errors.New("playback: units are not sorted by time")
	}

	reference := p.clock.Now()
	p.logger.Info("playback started",
		logging.String(logging.FieldPrinter, name),
		logging.Int("units", len(units)),
		logging.Int("bytes", timeline.TotalBytes(units)),
	)

	for i, unit := range units {
		if err := ctx.Err(); err != nil {
			return p.finish(summary, reference, err)
		}
		due := reference.Add(unit.Time)
		if wait := due.Sub(p.clock.Now()); wait > 0 {
			if err := p.clock.Sleep(ctx, wait); err != nil {
				return p.finish(summary, reference, err)
			}
			if err := ctx.Err(); err != nil {
				return p.finish(summary, reference, err)
			}
		}

		started := p.clock.Now()
		lag := max(started.Sub(due), 0)
		if err := p.emit(ctx, name, unit.Data); err != nil {
			p.logger.Error("unit failed",
				logging.Int("seq", i),
				logging.Duration("offset", unit.Time),
				logging.Error(err),
			)
			return p.finish(summary, reference, err)
		}

		summary.Units++
		summary.Bytes += len(unit.Data)
		summary.MaxLag = max(summary.MaxLag, lag)
		p.logger.Debug("unit printed",
			logging.Int("seq", i),
			logging.Duration("offset", unit.Time),
			logging.Int("bytes", len(unit.Data)),
			logging.Duration("lag", lag),
			logging.String("text", escpos.Printable(unit.Data)),
		)
		if p.observer != nil {
			p.observer(Event{
				Seq:       i,
				Offset:    unit.Time,
				Bytes:     len(unit.Data),
				Due:       due,
				PrintedAt: started,
				Lag:       lag,
			})
		}
	}
	return p.finish(summary, reference, nil)
}

func (p *Player) finish(summary Summary, reference time.Time, err error) (Summary, error) {
	summary.Elapsed = p.clock.Now().Sub(reference)
	attrs := []logging.Attr{
		logging.Int("units", summary.Units),
		logging.Int("bytes", summary.Bytes),
		logging.Duration("max_lag", summary.MaxLag),
		logging.Duration("elapsed", summary.Elapsed),
	}
	switch {
	case err == nil:
		p.logger.Info("playback finished", logging.Args(attrs...)...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		p.logger.Warn("playback interrupted", logging.Args(append(attrs, logging.Error(err))...)...)
	}
	return summary, err
}

// emit runs one scoped transport cycle. Close runs even when an earlier step
// fails; the first error wins.
func (p *Player) emit(ctx context.Context, name string, data []byte) (err error) {
	handle, err := p.printer.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := handle.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err := handle.BeginJob(p.title); err != nil {
		return err
	}
	if _, err := handle.Write(data); err != nil {
		return err
	}
	return handle.EndJob()
}
