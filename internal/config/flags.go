package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagWorkers   = flag.Int("workers", 0, "Parallel decompression workers")
	flagExportDir = flag.String("export-dir", "", "Directory for exported assets")
	flagWebP      = flag.Bool("webp", false, "Convert exported textures to WebP")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorkers > 0 {
		cfg.Archives.Workers = *flagWorkers
	}
	if *flagExportDir != "" {
		cfg.Export.Dir = *flagExportDir
	}
	if *flagWebP {
		cfg.Export.WebP = true
	}
}
