package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"thermalsub/internal/config"
	"thermalsub/internal/failures"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("THERMALSUB_PRINTER", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "thermalsub", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	stateDir := filepath.Join(tempHome, ".local", "share", "thermalsub")
	if cfg.Paths.StateDir != stateDir {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Paths.LogDir != filepath.Join(stateDir, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.LockDir != filepath.Join(stateDir, "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.Paths.LockDir)
	}
	if cfg.Journal.Path != filepath.Join(stateDir, "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Journal.Path)
	}
	if !cfg.Journal.Enabled {
		t.Fatal("expected journal enabled by default")
	}
	if cfg.Printer.Transport != config.TransportCUPS {
		t.Fatalf("unexpected transport: %q", cfg.Printer.Transport)
	}
	if cfg.Printer.JobTitle != "Line document" {
		t.Fatalf("unexpected job title: %q", cfg.Printer.JobTitle)
	}
	if cfg.Render.MaxDots != 190 || cfg.Render.WidthCorrection != 1.5 {
		t.Fatalf("unexpected render geometry: %+v", cfg.Render)
	}
	if cfg.Render.LookaheadSlots != 3 {
		t.Fatalf("unexpected lookahead: %d", cfg.Render.LookaheadSlots)
	}
	if cfg.Render.PageFeedLines != 8 {
		t.Fatalf("unexpected page feed lines: %d", cfg.Render.PageFeedLines)
	}
	if cfg.Render.CharsetPolicy != "fail" {
		t.Fatalf("unexpected charset policy: %q", cfg.Render.CharsetPolicy)
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THERMALSUB_PRINTER", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "thermalsub.toml")
	body := `
[printer]
name = "  receipt  "
transport = "TCP"
dial_timeout_seconds = 0

[render]
lookahead_slots = 0
charset_policy = "Transliterate"
dither = "Atkinson"

[paths]
state_dir = "` + filepath.Join(dir, "state") + `"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be loaded, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Printer.Name != "receipt" {
		t.Fatalf("expected trimmed printer name, got %q", cfg.Printer.Name)
	}
	if cfg.Printer.Transport != config.TransportTCP {
		t.Fatalf("expected lower-cased transport, got %q", cfg.Printer.Transport)
	}
	if cfg.Printer.DialTimeoutSeconds != 5 {
		t.Fatalf("expected default dial timeout, got %d", cfg.Printer.DialTimeoutSeconds)
	}
	if cfg.Render.LookaheadSlots != 0 {
		t.Fatalf("expected explicit zero lookahead to survive, got %d", cfg.Render.LookaheadSlots)
	}
	if cfg.Render.CharsetPolicy != "transliterate" || cfg.Render.Dither != "atkinson" {
		t.Fatalf("unexpected render enums: %+v", cfg.Render)
	}
	if cfg.Render.MaxDots != 190 {
		t.Fatalf("expected unset max_dots to keep default, got %d", cfg.Render.MaxDots)
	}
	if cfg.Paths.LogDir != filepath.Join(dir, "state", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadUsesPrinterEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("THERMALSUB_PRINTER", "kitchen")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Printer.Name != "kitchen" {
		t.Fatalf("expected printer from env, got %q", cfg.Printer.Name)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[render]\nmax_dotz = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected unknown key to fail")
	}
	if !errors.Is(err, failures.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"transport", func(c *config.Config) { c.Printer.Transport = "serial" }, "printer.transport"},
		{"max dots too small", func(c *config.Config) { c.Render.MaxDots = 4 }, "render.max_dots"},
		{"max dots too large", func(c *config.Config) { c.Render.MaxDots = 70000 }, "render.max_dots"},
		{"width correction", func(c *config.Config) { c.Render.WidthCorrection = 0 }, "render.width_correction"},
		{"lookahead", func(c *config.Config) { c.Render.LookaheadSlots = -1 }, "render.lookahead_slots"},
		{"page feed", func(c *config.Config) { c.Render.PageFeedLines = 0 }, "render.page_feed_lines"},
		{"charset", func(c *config.Config) { c.Render.CharsetPolicy = "ignore" }, "render.charset_policy"},
		{"resample", func(c *config.Config) { c.Render.Resample = "box" }, "render.resample"},
		{"dither", func(c *config.Config) { c.Render.Dither = "ordered" }, "render.dither"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, failures.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Render.MaxDots != 190 {
		t.Fatalf("unexpected sample max_dots: %d", decoded.Render.MaxDots)
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("Load(sample) exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfg.Paths.LockDir = filepath.Join(base, "locks")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.LockDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := config.ExpandPath("~/printers/out.bin")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if want := filepath.Join(home, "printers", "out.bin"); got != want {
		t.Fatalf("ExpandPath = %q, want %q", got, want)
	}
}
