package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const defaultLPBinary = "lp"

// CUPS submits each job to a raw CUPS queue through lp.
type CUPS struct {
	binary string
}

// NewCUPS returns a CUPS transport that invokes binary (lp when empty).
func NewCUPS(binary string) CUPS {
	if strings.TrimSpace(binary) == "" {
		binary = defaultLPBinary
	}
	return CUPS{binary: binary}
}

// Binary reports the lp executable in use.
func (c CUPS) Binary() string { return c.binary }

// Open validates the queue name. lp runs once per job at EndJob.
func (c CUPS) Open(ctx context.Context, name string) (Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, transportError("open", "cups", errors.New("printer queue name is empty"))
	}
	if _, err := exec.LookPath(c.binary); err != nil {
		return nil, transportError("open", name, fmt.Errorf("%s not found: %w", c.binary, err))
	}
	return &cupsHandle{ctx: ctx, binary: c.binary, queue: name}, nil
}

type cupsHandle struct {
	ctx    context.Context
	binary string
	queue  string
	state  jobState
	buf    bytes.Buffer
}

func (h *cupsHandle) BeginJob(title string) error {
	if err := h.state.begin(h.queue, title); err != nil {
		return err
	}
	h.buf.Reset()
	return nil
}

func (h *cupsHandle) Write(p []byte) (int, error) {
	if err := h.state.requireOpen("write", h.queue); err != nil {
		return 0, err
	}
	return h.buf.Write(p)
}

func (h *cupsHandle) EndJob() error {
	if err := h.state.requireOpen("end job", h.queue); err != nil {
		return err
	}
	h.state.open = false
	args := []string{"-d", h.queue, "-o", "raw"}
	if h.state.title != "" {
		args = append(args, "-t", h.state.title)
	}
	cmd := exec.CommandContext(context.WithoutCancel(h.ctx), h.binary, args...)
	cmd.Stdin = bytes.NewReader(h.buf.Bytes())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return transportError("end job", h.queue, err)
	}
	return nil
}

func (h *cupsHandle) Close() error {
	h.state.closed = true
	h.buf.Reset()
	return nil
}
