package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePrinter()
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = filepath.Join(c.Paths.StateDir, "locks")
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, "journal.db")
	}
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizePrinter() {
	c.Printer.Name = strings.TrimSpace(c.Printer.Name)
	if c.Printer.Name == "" {
		if value, ok := os.LookupEnv(printerEnvVar); ok {
			c.Printer.Name = strings.TrimSpace(value)
		}
	}
	c.Printer.Transport = strings.ToLower(strings.TrimSpace(c.Printer.Transport))
	if c.Printer.Transport == "" {
		c.Printer.Transport = defaultTransport
	}
	c.Printer.LPBinary = strings.TrimSpace(c.Printer.LPBinary)
	if c.Printer.LPBinary == "" {
		c.Printer.LPBinary = defaultLPBinary
	}
	c.Printer.JobTitle = strings.TrimSpace(c.Printer.JobTitle)
	if c.Printer.JobTitle == "" {
		c.Printer.JobTitle = defaultJobTitle
	}
	if c.Printer.WaitForDeviceSeconds < 0 {
		c.Printer.WaitForDeviceSeconds = 0
	}
	if c.Printer.DialTimeoutSeconds <= 0 {
		c.Printer.DialTimeoutSeconds = defaultDialTimeout
	}
}

func (c *Config) normalizeRender() {
	c.Render.CharsetPolicy = strings.ToLower(strings.TrimSpace(c.Render.CharsetPolicy))
	if c.Render.CharsetPolicy == "" {
		c.Render.CharsetPolicy = defaultCharsetPolicy
	}
	c.Render.Resample = strings.ToLower(strings.TrimSpace(c.Render.Resample))
	if c.Render.Resample == "" {
		c.Render.Resample = defaultResample
	}
	c.Render.Dither = strings.ToLower(strings.TrimSpace(c.Render.Dither))
	if c.Render.Dither == "" {
		c.Render.Dither = defaultDither
	}
	if c.Render.MinImageHeight <= 0 {
		c.Render.MinImageHeight = defaultMinImageHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
