package transport

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

const (
	defaultDialTimeout = 5 * time.Second
	rawPrintPort       = "9100"
)

// TCP streams jobs to a raw network printer (AppSocket/JetDirect).
type TCP struct {
	dialer net.Dialer
}

// NewTCP returns a TCP transport with the given connect timeout.
func NewTCP(timeout time.Duration) TCP {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return TCP{dialer: net.Dialer{Timeout: timeout}}
}

// Open dials addr. A missing port defaults to 9100.
func (t TCP) Open(ctx context.Context, addr string) (Handle, error) {
	addr, err := NormalizeAddress(addr)
	if err != nil {
		return nil, transportError("open", "tcp", err)
	}
	conn, err := t.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, transportError("open", addr, err)
	}
	return &tcpHandle{conn: conn, target: addr}, nil
}

// NormalizeAddress validates host[:port] and fills in the raw print port.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", errors.New("printer address is empty")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	host := strings.Trim(addr, "[]")
	if host == "" {
		return "", errors.New("printer address has no host")
	}
	return net.JoinHostPort(host, rawPrintPort), nil
}

type tcpHandle struct {
	conn   net.Conn
	target string
	state  jobState
}

func (h *tcpHandle) BeginJob(title string) error {
	return h.state.begin(h.target, title)
}

func (h *tcpHandle) Write(p []byte) (int, error) {
	if err := h.state.requireOpen("write", h.target); err != nil {
		return 0, err
	}
	n, err := h.conn.Write(p)
	if err != nil {
		return n, transportError("write", h.target, err)
	}
	return n, nil
}

func (h *tcpHandle) EndJob() error {
	if err := h.state.requireOpen("end job", h.target); err != nil {
		return err
	}
	h.state.open = false
	return nil
}

func (h *tcpHandle) Close() error {
	if h.state.closed {
		return nil
	}
	h.state.closed = true
	if err := h.conn.Close(); err != nil {
		return transportError("close", h.target, err)
	}
	return nil
}
