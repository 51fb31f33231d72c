package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thermalsub/internal/config"
	"thermalsub/internal/failures"
)

func runJob(t *testing.T, h Handle, title string, payload []byte) {
	t.Helper()
	if err := h.BeginJob(title); err != nil {
		t.Fatalf("BeginJob: %v", err)
	}
	if n, err := h.Write(payload); err != nil || n != len(payload) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if err := h.EndJob(); err != nil {
		t.Fatalf("EndJob: %v", err)
	}
}

func TestNewSelectsTransport(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"", "transport.CUPS"},
		{config.TransportCUPS, "transport.CUPS"},
		{config.TransportDevice, "transport.Device"},
		{config.TransportFile, "transport.File"},
		{config.TransportTCP, "transport.TCP"},
	}
	for _, tt := range tests {
		p, err := New(Options{Kind: tt.kind})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.kind, err)
		}
		if got := fmt.Sprintf("%T", p); got != tt.want {
			t.Fatalf("New(%q) = %s, want %s", tt.kind, got, tt.want)
		}
	}

	if _, err := New(Options{Kind: "serial"}); !errors.Is(err, failures.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFileTransportAppendsJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	h, err := File{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	runJob(t, h, "Line document", []byte("\x1b@one\n"))
	runJob(t, h, "Line document", []byte("two\n"))
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if want := "\x1b@one\ntwo\n"; string(got) != want {
		t.Fatalf("capture = %q, want %q", got, want)
	}
}

func TestHandleEnforcesJobOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	h, err := File{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	if _, err := h.Write([]byte("x")); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("write without job: expected transport error, got %v", err)
	}
	if err := h.EndJob(); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("end without job: expected transport error, got %v", err)
	}
	if err := h.BeginJob("a"); err != nil {
		t.Fatalf("BeginJob: %v", err)
	}
	if err := h.BeginJob("b"); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("nested job: expected transport error, got %v", err)
	}
}

func TestDeviceTransport(t *testing.T) {
	if _, err := (Device{}).Open(context.Background(), filepath.Join(t.TempDir(), "lp0")); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("missing node: expected transport error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "lp0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("create node: %v", err)
	}
	h, err := Device{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	runJob(t, h, "", []byte("hello\n"))
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "hello\n" {
		t.Fatalf("device contents = %q", got)
	}
}

func TestCUPSRunsLPPerJob(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-lp")
	body := "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$0.args\"\ncat > \"$0.out\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake lp: %v", err)
	}

	h, err := NewCUPS(script).Open(context.Background(), "thermal")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	runJob(t, h, "Line document", []byte("\x1b@hi\n"))

	args, err := os.ReadFile(script + ".args")
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if want := "-d\nthermal\n-o\nraw\n-t\nLine document\n"; string(args) != want {
		t.Fatalf("lp args = %q, want %q", args, want)
	}
	out, err := os.ReadFile(script + ".out")
	if err != nil {
		t.Fatalf("read stdin capture: %v", err)
	}
	if string(out) != "\x1b@hi\n" {
		t.Fatalf("lp stdin = %q", out)
	}
}

func TestCUPSFailures(t *testing.T) {
	if _, err := NewCUPS(filepath.Join(t.TempDir(), "missing-lp")).Open(context.Background(), "thermal"); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("missing lp: expected transport error, got %v", err)
	}
	if _, err := NewCUPS("").Open(context.Background(), "  "); !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("empty queue: expected transport error, got %v", err)
	}

	script := filepath.Join(t.TempDir(), "failing-lp")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat >/dev/null\necho 'lp: no such queue' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write fake lp: %v", err)
	}
	h, err := NewCUPS(script).Open(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.BeginJob("x"); err != nil {
		t.Fatalf("BeginJob: %v", err)
	}
	if _, err := h.Write([]byte("data")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	err = h.EndJob()
	if !errors.Is(err, failures.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no such queue") {
		t.Fatalf("expected lp stderr in error, got %v", err)
	}
}

func TestTCPTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			received <- nil
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	h, err := NewTCP(time.Second).Open(context.Background(), ln.Addr().String())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	runJob(t, h, "", []byte("abc"))
	runJob(t, h, "", []byte("def"))
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case data := <-received:
		if !bytes.Equal(data, []byte("abcdef")) {
			t.Fatalf("server received %q", data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for server")
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"printer.local", "printer.local:9100", false},
		{"10.0.0.5:9101", "10.0.0.5:9101", false},
		{" 10.0.0.5 ", "10.0.0.5:9100", false},
		{"[::1]", "[::1]:9100", false},
		{"", "", true},
		{"[]", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeAddress(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("NormalizeAddress(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("NormalizeAddress(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	first, err := AcquireLock(dir, "/dev/usb/lp0")
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if filepath.Base(first.Path()) != "dev_usb_lp0.lock" {
		t.Fatalf("unexpected lock path %q", first.Path())
	}

	if _, err := AcquireLock(dir, "/dev/usb/lp0"); !errors.Is(err, failures.ErrBusy) {
		t.Fatalf("expected busy error, got %v", err)
	}
	other, err := AcquireLock(dir, "Kitchen Printer")
	if err != nil {
		t.Fatalf("lock on another printer: %v", err)
	}
	defer other.Release()

	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := AcquireLock(dir, "/dev/usb/lp0")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	_ = again.Release()
}

func TestLockToken(t *testing.T) {
	tests := map[string]string{
		"Kitchen Printer": "kitchen_printer",
		"10.0.0.5:9100":   "10.0.0.5_9100",
		"/dev/usb/lp0":    "dev_usb_lp0",
		"   ":             "printer",
		"POS-58":          "pos-58",
	}
	for in, want := range tests {
		if got := lockToken(in); got != want {
			t.Fatalf("lockToken(%q) = %q, want %q", in, got, want)
		}
	}
}
