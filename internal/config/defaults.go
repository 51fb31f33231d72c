package config

const (
	defaultConfigPath      = "~/.config/thermalsub/config.toml"
	projectConfigName      = "thermalsub.toml"
	defaultStateDir        = "~/.local/share/thermalsub"
	defaultTransport       = "cups"
	defaultLPBinary        = "lp"
	defaultJobTitle        = "Line document"
	defaultDialTimeout     = 5
	defaultMaxDots         = 190
	defaultWidthCorrection = 1.5
	defaultLookaheadSlots  = 3
	defaultPageFeedLines   = 8
	defaultMinImageHeight  = 7
	defaultCharsetPolicy   = "fail"
	defaultResample        = "catmullrom"
	defaultDither          = "floyd-steinberg"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	printerEnvVar          = "THERMALSUB_PRINTER"
)

// Transport names accepted in printer.transport.
const (
	TransportCUPS   = "cups"
	TransportDevice = "device"
	TransportFile   = "file"
	TransportTCP    = "tcp"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Printer: Printer{
			Transport:          defaultTransport,
			LPBinary:           defaultLPBinary,
			JobTitle:           defaultJobTitle,
			DialTimeoutSeconds: defaultDialTimeout,
		},
		Render: Render{
			MaxDots:         defaultMaxDots,
			WidthCorrection: defaultWidthCorrection,
			LookaheadSlots:  defaultLookaheadSlots,
			PageFeedLines:   defaultPageFeedLines,
			MinImageHeight:  defaultMinImageHeight,
			CharsetPolicy:   defaultCharsetPolicy,
			Resample:        defaultResample,
			Dither:          defaultDither,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
		Journal: Journal{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
