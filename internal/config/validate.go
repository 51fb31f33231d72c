package config

import (
	"fmt"
	"math"

	"thermalsub/internal/escpos"
	"thermalsub/internal/failures"
	"thermalsub/internal/raster"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePrinter(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePrinter() error {
	switch c.Printer.Transport {
	case TransportCUPS, TransportDevice, TransportFile, TransportTCP:
	default:
		return configError("printer.transport: unsupported value %q (want cups, device, file, or tcp)", c.Printer.Transport)
	}
	return nil
}

func (c *Config) validateRender() error {
	r := c.Render
	if r.MaxDots < raster.BandHeight || r.MaxDots > math.MaxUint16 {
		return configError("render.max_dots: %d out of range %d..%d", r.MaxDots, raster.BandHeight, math.MaxUint16)
	}
	if r.WidthCorrection <= 0 {
		return configError("render.width_correction: must be positive, got %v", r.WidthCorrection)
	}
	if r.LookaheadSlots < 0 {
		return configError("render.lookahead_slots: must be zero or more, got %d", r.LookaheadSlots)
	}
	if r.PageFeedLines < 1 {
		return configError("render.page_feed_lines: must be at least 1, got %d", r.PageFeedLines)
	}
	if _, err := escpos.ParseCharsetPolicy(r.CharsetPolicy); err != nil {
		return configError("render.charset_policy: %v", err)
	}
	if _, err := raster.ParseResample(r.Resample); err != nil {
		return configError("render.resample: %v", err)
	}
	switch raster.DitherMode(r.Dither) {
	case raster.DitherFloydSteinberg, raster.DitherAtkinson, raster.DitherBayer, raster.DitherThreshold:
	default:
		return configError("render.dither: unsupported value %q", r.Dither)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return configError("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func configError(format string, args ...any) error {
	return failures.Wrap(failures.ErrConfiguration, "config", "", fmt.Sprintf(format, args...), nil)
}
