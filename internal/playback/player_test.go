package playback_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"thermalsub/internal/failures"
	"thermalsub/internal/playback"
	"thermalsub/internal/timeline"
	"thermalsub/internal/transport"
)

// fakeClock advances only when slept on or when a job ends (by work).
type fakeClock struct {
	now     time.Time
	sleeps  []time.Duration
	onSleep func(d time.Duration) error
	work    time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	if c.onSleep != nil {
		if err := c.onSleep(d); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.now = c.now.Add(d)
	return nil
}

type fakePrinter struct {
	clock   *fakeClock
	calls   []string
	jobs    []string
	at      []time.Duration
	start   time.Time
	failOn  int
	openErr error
}

func (p *fakePrinter) Open(_ context.Context, name string) (transport.Handle, error) {
	p.calls = append(p.calls, "open:"+name)
	if p.openErr != nil {
		return nil, p.openErr
	}
	return &fakeHandle{printer: p}, nil
}

type fakeHandle struct {
	printer *fakePrinter
	buf     strings.Builder
}

func (h *fakeHandle) BeginJob(title string) error {
	h.printer.calls = append(h.printer.calls, "begin:"+title)
	return nil
}

func (h *fakeHandle) Write(p []byte) (int, error) {
	h.printer.calls = append(h.printer.calls, "write")
	if h.printer.failOn > 0 && len(h.printer.jobs)+1 == h.printer.failOn {
		return 0, failures.Wrap(failures.ErrTransport, "transport", "write", "fake", errors.New("paper out"))
	}
	h.buf.Write(p)
	return len(p), nil
}

func (h *fakeHandle) EndJob() error {
	h.printer.calls = append(h.printer.calls, "end")
	h.printer.jobs = append(h.printer.jobs, h.buf.String())
	if h.printer.clock != nil {
		h.printer.at = append(h.printer.at, h.printer.clock.now.Sub(h.printer.start))
		h.printer.clock.now = h.printer.clock.now.Add(h.printer.clock.work)
	}
	return nil
}

func (h *fakeHandle) Close() error {
	h.printer.calls = append(h.printer.calls, "close")
	return nil
}

func frag(at time.Duration, data string) timeline.Fragment {
	return timeline.Fragment{Time: at, Data: []byte(data)}
}

func TestPlaySendsEachUnitAtItsDueTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	printer := &fakePrinter{clock: clock, start: start}
	units := []timeline.Fragment{
		frag(0, "a"),
		frag(1500*time.Millisecond, "b"),
		frag(4*time.Second, "c"),
	}

	var events []playback.Event
	player := playback.New(printer,
		playback.WithClock(clock),
		playback.WithObserver(func(ev playback.Event) { events = append(events, ev) }),
	)
	if err := player.Play(context.Background(), "thermal", units); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if got := strings.Join(printer.jobs, ","); got != "a,b,c" {
		t.Fatalf("jobs = %q", got)
	}
	wantAt := []time.Duration{0, 1500 * time.Millisecond, 4 * time.Second}
	for i, want := range wantAt {
		if printer.at[i] != want {
			t.Fatalf("unit %d printed at %v, want %v", i, printer.at[i], want)
		}
	}
	if len(clock.sleeps) != 2 {
		t.Fatalf("expected no sleep for the unit due at zero, got %v", clock.sleeps)
	}
	if len(events) != 3 || events[2].Seq != 2 || events[2].Bytes != 1 || events[2].Offset != 4*time.Second {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestPlayUsesOneScopedCyclePerUnit(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	printer := &fakePrinter{}
	player := playback.New(printer, playback.WithClock(clock), playback.WithJobTitle("Subs"))

	units := []timeline.Fragment{frag(0, "x"), frag(time.Second, "y")}
	if err := player.Play(context.Background(), "pos58", units); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	want := "open:pos58 begin:Subs write end close open:pos58 begin:Subs write end close"
	if got := strings.Join(printer.calls, " "); got != want {
		t.Fatalf("calls = %q\nwant %q", got, want)
	}
}

func TestPlayDoesNotAccumulateDrift(t *testing.T) {
	start := time.Unix(100, 0)
	clock := &fakeClock{now: start, work: 300 * time.Millisecond}
	printer := &fakePrinter{clock: clock, start: start}
	units := []timeline.Fragment{frag(0, "a"), frag(time.Second, "b"), frag(2*time.Second, "c")}

	if err := playback.New(printer, playback.WithClock(clock)).Play(context.Background(), "p", units); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	for i, want := range []time.Duration{0, time.Second, 2 * time.Second} {
		if printer.at[i] != want {
			t.Fatalf("unit %d printed at %v, want %v", i, printer.at[i], want)
		}
	}
	for _, d := range clock.sleeps {
		if d != 700*time.Millisecond {
			t.Fatalf("expected waits shortened by processing time, got %v", clock.sleeps)
		}
	}
}

func TestPlaySendsLateUnitsImmediately(t *testing.T) {
	start := time.Unix(0, 0)
	clock := &fakeClock{now: start, work: 3 * time.Second}
	printer := &fakePrinter{clock: clock, start: start}
	units := []timeline.Fragment{frag(0, "a"), frag(time.Second, "b"), frag(2*time.Second, "c")}

	summary, err := playback.New(printer, playback.WithClock(clock)).PlayWithSummary(context.Background(), "p", units)
	if err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("expected no waits when behind schedule, got %v", clock.sleeps)
	}
	if summary.Units != 3 || summary.Bytes != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.MaxLag != 4*time.Second {
		t.Fatalf("max lag = %v, want 4s", summary.MaxLag)
	}
}

func TestPlayAbortsOnTransportError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	printer := &fakePrinter{failOn: 2}
	units := []timeline.Fragment{frag(0, "a"), frag(time.Second, "b"), frag(2*time.Second, "c")}

	summary, err := playback.New(printer, playback.WithClock(clock)).PlayWithSummary(context.Background(), "p", units)
	if !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if strings.Join(printer.jobs, ",") != "a" {
		t.Fatalf("expected only the first unit printed, got %q", printer.jobs)
	}
	if summary.Units != 1 {
		t.Fatalf("summary units = %d, want 1", summary.Units)
	}
	if printer.calls[len(printer.calls)-1] != "close" {
		t.Fatalf("expected handle closed after failure, calls %v", printer.calls)
	}
}

func TestPlayOpenErrorIsNotRetried(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	openErr := failures.Wrap(failures.ErrTransport, "transport", "open", "p", errors.New("no device"))
	printer := &fakePrinter{openErr: openErr}

	err := playback.New(printer, playback.WithClock(clock)).Play(context.Background(), "p", []timeline.Fragment{frag(0, "a"), frag(0, "b")})
	if !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}
	if len(printer.calls) != 1 {
		t.Fatalf("expected a single open attempt, got %v", printer.calls)
	}
}

func TestPlayCancellationInterruptsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &fakeClock{now: time.Unix(0, 0)}
	clock.onSleep = func(time.Duration) error {
		cancel()
		return nil
	}
	printer := &fakePrinter{}
	units := []timeline.Fragment{frag(0, "a"), frag(5*time.Second, "b")}

	err := playback.New(printer, playback.WithClock(clock)).Play(ctx, "p", units)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if strings.Join(printer.jobs, ",") != "a" {
		t.Fatalf("expected first unit only, got %q", printer.jobs)
	}
}

// wakeThenCancelClock finishes every wait normally but cancels the context
// as it wakes, like a signal landing right after the timer fires.
type wakeThenCancelClock struct {
	fakeClock
	cancel context.CancelFunc
}

func (c *wakeThenCancelClock) Sleep(_ context.Context, d time.Duration) error {
	c.cancel()
	c.now = c.now.Add(d)
	return nil
}

func TestPlayChecksCancellationAfterWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := &wakeThenCancelClock{fakeClock: fakeClock{now: time.Unix(0, 0)}, cancel: cancel}
	printer := &fakePrinter{}
	units := []timeline.Fragment{frag(0, "a"), frag(time.Second, "b")}

	err := playback.New(printer, playback.WithClock(clock)).Play(ctx, "p", units)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if strings.Join(printer.jobs, ",") != "a" {
		t.Fatalf("expected unit after the wait to be skipped, got %q", printer.jobs)
	}
}

func TestPlayRejectsUnsortedUnits(t *testing.T) {
	printer := &fakePrinter{}
	err := playback.New(printer).Play(context.Background(), "p", []timeline.Fragment{frag(time.Second, "a"), frag(0, "b")})
	if err == nil {
		t.Fatal("expected error for unsorted units")
	}
	if len(printer.calls) != 0 {
		t.Fatalf("expected no transport activity, got %v", printer.calls)
	}
}

func TestSystemClockSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := playback.SystemClock().Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := playback.SystemClock().Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep returned error: %v", err)
	}
}
