package devwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"thermalsub/internal/failures"
	"thermalsub/internal/logging"
)

const defaultPollInterval = 250 * time.Millisecond

// eventSource is the subset of netlink.UEventConn the watcher uses.
type eventSource interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

// Watcher waits for device nodes.
type Watcher struct {
	logger       *slog.Logger
	connect      func() (eventSource, error)
	exists       func(path string) bool
	pollInterval time.Duration
}

// New returns a Watcher backed by the udev netlink socket.
func New(logger *slog.Logger) *Watcher {
	return &Watcher{
		logger:       logging.NewComponentLogger(logger, "devwatch"),
		connect:      connectUdev,
		exists:       nodeExists,
		pollInterval: defaultPollInterval,
	}
}

func connectUdev() (eventSource, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

func nodeExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Wait blocks until path exists, timeout elapses, or ctx is cancelled. A
// node that already exists returns immediately. Timeouts are transport errors.
func (w *Watcher) Wait(ctx context.Context, path string, timeout time.Duration) error {
	path = filepath.Clean(strings.TrimSpace(path))
	if w.exists(path) {
		return nil
	}
	if timeout <= 0 {
		return failures.Wrap(failures.ErrTransport, "devwatch", "wait", fmt.Sprintf("device %s not present", path), nil)
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	w.logger.Info("waiting for printer device",
		logging.String("device", path),
		logging.Duration("timeout", timeout),
		logging.String(logging.FieldEventType, "device_wait_started"),
	)

	var err error
	source, connErr := w.connect()
	if connErr != nil {
		w.logger.Warn("failed to connect to netlink socket; polling for device instead",
			logging.Error(connErr),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open netlink sockets"),
			logging.String(logging.FieldImpact, "device detection may lag by the poll interval"),
		)
		err = w.poll(waitCtx, path)
	} else {
		defer source.Close()
		err = w.monitor(waitCtx, source, path)
	}

	switch {
	case err == nil:
		w.logger.Info("printer device available",
			logging.String("device", path),
			logging.String(logging.FieldEventType, "device_ready"),
		)
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return failures.Wrap(failures.ErrTransport, "devwatch", "wait",
			fmt.Sprintf("device %s did not appear within %s", path, timeout), nil)
	default:
		return err
	}
}

func (w *Watcher) monitor(ctx context.Context, source eventSource, path string) error {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	quit := source.Monitor(queue, errs, BuildMatcher())
	defer close(quit)

	// The node may have appeared between the first check and subscribing.
	if w.exists(path) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case uevent := <-queue:
			name := DeviceName(uevent)
			if name != path {
				w.logger.Debug("ignoring device event",
					logging.String("device", name),
					logging.String("wanted", path),
				)
				continue
			}
			return nil
		case err := <-errs:
			w.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "device detection may be delayed"),
			)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, path string) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.exists(path) {
				return nil
			}
		}
	}
}

// BuildMatcher matches printer class device additions:
// SUBSYSTEM=usbmisc, ACTION=add.
func BuildMatcher() netlink.Matcher {
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "usbmisc",
		},
	})
	return rules
}

// DeviceName returns the /dev path announced by a uevent, or "".
func DeviceName(uevent netlink.UEvent) string {
	if devname := strings.TrimSpace(uevent.Env["DEVNAME"]); devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return filepath.Clean(devname)
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
