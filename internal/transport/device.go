package transport

import (
	"context"
	"errors"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

// Device writes directly to a character device node such as /dev/usb/lp0.
type Device struct{}

// Open checks write permission and opens the node for writing.
func (Device) Open(_ context.Context, path string) (Handle, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, transportError("open", "device", errors.New("device path is empty"))
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return nil, transportError("open", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, transportError("open", path, err)
	}
	return &fileHandle{file: f, target: path, sync: true}, nil
}

// File appends the raw stream to a capture file, creating it when missing.
type File struct{}

// Open opens path for appending.
func (File) Open(_ context.Context, path string) (Handle, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, transportError("open", "file", errors.New("capture path is empty"))
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, transportError("open", path, err)
	}
	return &fileHandle{file: f, target: path}, nil
}

type fileHandle struct {
	file   *os.File
	target string
	sync   bool
	state  jobState
}

func (h *fileHandle) BeginJob(title string) error {
	return h.state.begin(h.target, title)
}

func (h *fileHandle) Write(p []byte) (int, error) {
	if err := h.state.requireOpen("write", h.target); err != nil {
		return 0, err
	}
	n, err := h.file.Write(p)
	if err != nil {
		return n, transportError("write", h.target, err)
	}
	return n, nil
}

// EndJob flushes device nodes so the job is on paper before the next wait.
func (h *fileHandle) EndJob() error {
	if err := h.state.requireOpen("end job", h.target); err != nil {
		return err
	}
	h.state.open = false
	if !h.sync {
		return nil
	}
	if err := unix.Fsync(int(h.file.Fd())); err != nil && !errors.Is(err, unix.EINVAL) && !errors.Is(err, unix.ENOTSUP) {
		return transportError("end job", h.target, err)
	}
	return nil
}

func (h *fileHandle) Close() error {
	if h.state.closed {
		return nil
	}
	h.state.closed = true
	if err := h.file.Close(); err != nil {
		return transportError("close", h.target, err)
	}
	return nil
}
