// Package config handles tool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Archives ArchiveConfig `yaml:"archives"`
	Export   ExportConfig  `yaml:"export"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ArchiveConfig holds S3D archive search settings.
type ArchiveConfig struct {
	Paths   []string `yaml:"paths"`   // Searched in reverse order (last = highest priority)
	Workers int      `yaml:"workers"` // Parallel decompression workers, 0 = one per CPU
}

// ExportConfig holds asset export settings.
type ExportConfig struct {
	Dir  string `yaml:"dir"`
	WebP bool   `yaml:"webp"` // Convert exported textures to WebP
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Archives: ArchiveConfig{
			Paths:   nil,
			Workers: 0,
		},
		Export: ExportConfig{
			Dir:  "export",
			WebP: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
