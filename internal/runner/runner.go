package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"thermalsub/internal/config"
	"thermalsub/internal/devwatch"
	"thermalsub/internal/escpos"
	"thermalsub/internal/failures"
	"thermalsub/internal/journal"
	"thermalsub/internal/logging"
	"thermalsub/internal/playback"
	"thermalsub/internal/raster"
	"thermalsub/internal/script"
	"thermalsub/internal/subtitles"
	"thermalsub/internal/timeline"
	"thermalsub/internal/transport"
)

// Plan is a fully compiled script ready for playback.
type Plan struct {
	ScriptPath string
	Records    int
	// Fragments is the laid-out sequence before latency compensation.
	Fragments []timeline.Fragment
	// Units is what the player sends, one transport cycle each.
	Units []timeline.Fragment
	Stats script.Stats
}

// Duration is the offset of the last unit.
func (p *Plan) Duration() time.Duration {
	if p == nil || len(p.Units) == 0 {
		return 0
	}
	return p.Units[len(p.Units)-1].Time
}

// Bytes totals the command stream.
func (p *Plan) Bytes() int {
	if p == nil {
		return 0
	}
	return timeline.TotalBytes(p.Units)
}

// Stream concatenates every unit into the raw command stream.
func (p *Plan) Stream() []byte {
	if p == nil {
		return nil
	}
	out := make([]byte, 0, p.Bytes())
	for _, u := range p.Units {
		out = append(out, u.Data...)
	}
	return out
}

// deviceWaiter is satisfied by *devwatch.Watcher.
type deviceWaiter interface {
	Wait(ctx context.Context, path string, timeout time.Duration) error
}

// Runner carries the collaborators of a run.
type Runner struct {
	cfg        *config.Config
	logger     *slog.Logger
	loader     raster.Loader
	newPrinter func(transport.Options) (transport.Printer, error)
	clock      playback.Clock
	devices    deviceWaiter
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLoader replaces the image loader.
func WithLoader(loader raster.Loader) Option {
	return func(r *Runner) { r.loader = loader }
}

// WithPrinter replaces transport selection with a fixed printer.
func WithPrinter(printer transport.Printer) Option {
	return func(r *Runner) {
		r.newPrinter = func(transport.Options) (transport.Printer, error) { return printer, nil }
	}
}

// WithClock replaces the playback clock.
func WithClock(clock playback.Clock) Option {
	return func(r *Runner) { r.clock = clock }
}

// WithDeviceWaiter replaces the udev device watcher.
func WithDeviceWaiter(w deviceWaiter) Option {
	return func(r *Runner) { r.devices = w }
}

// New builds a Runner for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "runner"),
		loader:     raster.FileLoader{},
		newPrinter: transport.New,
		clock:      playback.SystemClock(),
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	r.devices = devwatch.New(logger)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Compile is New(cfg, logger).Compile.
func Compile(ctx context.Context, cfg *config.Config, scriptPath string, logger *slog.Logger) (*Plan, error) {
	return New(cfg, logger).Compile(ctx, scriptPath)
}

// Print is New(cfg, logger).Print.
func Print(ctx context.Context, cfg *config.Config, printer, scriptPath string, logger *slog.Logger) error {
	return New(cfg, logger).Print(ctx, printer, scriptPath)
}

// Compile parses and lays out scriptPath without touching a printer.
func (r *Runner) Compile(ctx context.Context, scriptPath string) (*Plan, error) {
	if r.cfg == nil {
		return nil, errors.New("runner: config is nil")
	}
	absPath, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("resolve script path: %w", err)
	}

	records, err := subtitles.ParseFile(absPath)
	if err != nil {
		return nil, err
	}

	builder, err := r.newBuilder(filepath.Dir(absPath))
	if err != nil {
		return nil, err
	}
	frags, stats, err := builder.Build(ctx, records)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		ScriptPath: absPath,
		Records:    len(records),
		Fragments:  frags,
		Units:      timeline.Prepare(frags, r.cfg.Render.LookaheadSlots),
		Stats:      stats,
	}
	r.logger.Info("script compiled",
		logging.String("script", absPath),
		logging.Int("entries", stats.Entries),
		logging.Int("fragments", stats.Fragments),
		logging.Int("units", len(plan.Units)),
		logging.Int("images", stats.Images),
		logging.Int("bytes", plan.Bytes()),
		logging.Duration("duration", plan.Duration()),
	)
	return plan, nil
}

func (r *Runner) newBuilder(baseDir string) (*script.Builder, error) {
	policy, err := escpos.ParseCharsetPolicy(r.cfg.Render.CharsetPolicy)
	if err != nil {
		return nil, failures.Wrap(failures.ErrConfiguration, "runner", "charset", "", err)
	}
	rasterizer, err := raster.NewRasterizer(raster.Options{
		MaxDots:         r.cfg.Render.MaxDots,
		WidthCorrection: r.cfg.Render.WidthCorrection,
		MinHeight:       r.cfg.Render.MinImageHeight,
		Resample:        r.cfg.Render.Resample,
		Dither:          raster.DitherMode(r.cfg.Render.Dither),
	})
	if err != nil {
		return nil, failures.Wrap(failures.ErrConfiguration, "runner", "rasterizer", "", err)
	}
	return script.NewBuilder(script.Options{
		Encoder:       escpos.NewEncoder(policy),
		Rasterizer:    rasterizer,
		Loader:        r.loader,
		BaseDir:       baseDir,
		PageFeedLines: r.cfg.Render.PageFeedLines,
		Logger:        r.logger,
	})
}

// Print compiles scriptPath and plays it on printer, falling back to the
// configured printer name when printer is empty.
func (r *Runner) Print(ctx context.Context, printer, scriptPath string) (err error) {
	target := strings.TrimSpace(printer)
	if target == "" && r.cfg != nil {
		target = r.cfg.Printer.Name
	}
	if target == "" {
		return failures.Wrap(failures.ErrConfiguration, "runner", "printer", "no printer given and printer.name is empty", nil)
	}

	plan, err := r.Compile(ctx, scriptPath)
	if err != nil {
		return err
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock, err := transport.AcquireLock(r.cfg.Paths.LockDir, target)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()

	runID := uuid.NewString()
	logger := logging.WithRun(r.logger, runID, target)
	logger.Info("print starting",
		logging.String("transport", r.cfg.Printer.Transport),
		logging.Bool("journal", r.cfg.Journal.Enabled),
		logging.Duration("duration", plan.Duration()),
	)

	if r.cfg.Printer.Transport == config.TransportDevice && r.cfg.Printer.WaitForDeviceSeconds > 0 {
		if err := r.devices.Wait(ctx, target, r.cfg.DeviceWait()); err != nil {
			return err
		}
	}

	printerTransport, err := r.newPrinter(transport.OptionsFromConfig(r.cfg))
	if err != nil {
		return err
	}

	run := r.startJournal(ctx, logger, runID, target, plan)
	if run != nil {
		defer run.close(ctx, logger, &err)
	}

	player := playback.New(printerTransport,
		playback.WithClock(r.clock),
		playback.WithLogger(logger),
		playback.WithJobTitle(r.cfg.Printer.JobTitle),
		playback.WithObserver(run.observe(ctx, logger)),
	)
	return player.Play(ctx, target, plan.Units)
}

type journalRun struct {
	journal *journal.Journal
	run     *journal.Run
}

func (r *Runner) startJournal(ctx context.Context, logger *slog.Logger, runID, target string, plan *Plan) *journalRun {
	if !r.cfg.Journal.Enabled {
		return nil
	}
	j, err := journal.Open(r.cfg.Journal.Path)
	if err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_open_failed",
			logging.Error(err),
			logging.String("path", r.cfg.Journal.Path),
			logging.String(logging.FieldErrorHint, "delete the journal file or set journal.enabled = false"),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
		)
		return nil
	}
	run, err := j.StartRun(ctx, journal.RunInfo{
		ID:           runID,
		Printer:      target,
		Transport:    r.cfg.Printer.Transport,
		ScriptPath:   plan.ScriptPath,
		UnitsPlanned: len(plan.Units),
		BytesPlanned: plan.Bytes(),
		Duration:     plan.Duration(),
	})
	if err != nil {
		_ = j.Close()
		logging.WarnWithContext(logger, "failed to record run start", "journal_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in history"),
		)
		return nil
	}
	return &journalRun{journal: j, run: run}
}

// observe returns the playback observer. A nil run yields a nil observer.
func (jr *journalRun) observe(ctx context.Context, logger *slog.Logger) func(playback.Event) {
	if jr == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)
	return func(ev playback.Event) {
		err := jr.run.UnitPrinted(ctx, journal.UnitRecord{
			Seq:       ev.Seq,
			Offset:    ev.Offset,
			Bytes:     ev.Bytes,
			Lag:       ev.Lag,
			PrintedAt: ev.PrintedAt,
		})
		if err != nil {
			logger.Debug("journal unit write failed", logging.Error(err))
		}
	}
}

func (jr *journalRun) close(ctx context.Context, logger *slog.Logger, runErr *error) {
	ctx = context.WithoutCancel(ctx)
	if err := jr.run.Finish(ctx, *runErr); err != nil {
		logger.Debug("journal finish failed", logging.Error(err))
	}
	if err := jr.journal.Close(); err != nil {
		logger.Debug("journal close failed", logging.Error(err))
	}
}
