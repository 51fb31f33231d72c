package preflight

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"thermalsub/internal/config"
	"thermalsub/internal/transport"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckJournal verifies the journal database can be created or written.
func CheckJournal(path string) Result {
	const name = "Journal"
	if _, err := os.Stat(path); err == nil {
		if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
		}
		return Result{Name: name, Passed: true, Detail: path}
	}
	dir := filepath.Dir(path)
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create in %s: %v)", path, dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckTransport dispatches to the check for the configured transport.
func CheckTransport(ctx context.Context, cfg *config.Config, target string) Result {
	if strings.TrimSpace(target) == "" {
		return Result{Name: "Printer", Detail: "no printer configured (set printer.name or pass PRINTER)"}
	}
	switch cfg.Printer.Transport {
	case config.TransportCUPS:
		return CheckLPBinary(cfg.Printer.LPBinary, target)
	case config.TransportDevice:
		return CheckDevice(target)
	case config.TransportFile:
		return CheckCaptureFile(target)
	case config.TransportTCP:
		return CheckTCP(ctx, target, cfg)
	default:
		return Result{Name: "Printer", Detail: fmt.Sprintf("unknown transport %q", cfg.Printer.Transport)}
	}
}

// CheckLPBinary verifies the lp executable used by the cups transport.
func CheckLPBinary(binary, queue string) Result {
	const name = "CUPS lp"
	path, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (queue %s)", path, queue)}
}

// CheckDevice verifies a printer device node is present and writable.
func CheckDevice(path string) Result {
	const name = "Printer device"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not present; is the printer plugged in?)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v; check the lp group)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", path)}
}

// CheckCaptureFile verifies the capture file's directory is writable.
func CheckCaptureFile(path string) Result {
	const name = "Capture file"
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory %s missing)", path, dir)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: directory not writable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckTCP verifies a raw network printer accepts connections.
func CheckTCP(ctx context.Context, target string, cfg *config.Config) Result {
	const name = "Network printer"
	addr, err := transport.NormalizeAddress(target)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", target, err)}
	}
	dialer := net.Dialer{Timeout: cfg.DialTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", addr, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", addr)}
}
