package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Archives.Paths) != 0 {
		t.Errorf("expected no default archive paths, got %v", cfg.Archives.Paths)
	}
	if cfg.Archives.Workers != 0 {
		t.Errorf("expected workers 0 (auto), got %d", cfg.Archives.Workers)
	}

	if cfg.Export.Dir != "export" {
		t.Errorf("expected export dir 'export', got %s", cfg.Export.Dir)
	}
	if cfg.Export.WebP {
		t.Error("expected webp conversion to be off by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
archives:
  paths:
    - gfaydark.s3d
    - gfaydark_obj.s3d
  workers: 4

export:
  dir: out
  webp: true

logging:
  level: "debug"
  log_file: "s3dtool.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Archives.Paths) != 2 || cfg.Archives.Paths[0] != "gfaydark.s3d" {
		t.Errorf("expected two archive paths, got %v", cfg.Archives.Paths)
	}
	if cfg.Archives.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Archives.Workers)
	}

	if cfg.Export.Dir != "out" {
		t.Errorf("expected export dir 'out', got %s", cfg.Export.Dir)
	}
	if !cfg.Export.WebP {
		t.Error("expected webp to be true")
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "s3dtool.log" {
		t.Errorf("expected log file 's3dtool.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
archives:
  workers: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Actual path depends on OS; just verify shape.
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  dir: out\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	path = findConfigFile()
	if path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "workers flag",
			setup: func() {
				*flagWorkers = 8
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Archives.Workers != 8 {
					t.Errorf("expected workers 8, got %d", cfg.Archives.Workers)
				}
			},
			teardown: func() {
				*flagWorkers = 0
			},
		},
		{
			name: "export dir flag",
			setup: func() {
				*flagExportDir = "dump"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Export.Dir != "dump" {
					t.Errorf("expected export dir 'dump', got %s", cfg.Export.Dir)
				}
			},
			teardown: func() {
				*flagExportDir = ""
			},
		},
		{
			name: "webp flag",
			setup: func() {
				*flagWebP = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.WebP {
					t.Error("expected webp to be enabled")
				}
			},
			teardown: func() {
				*flagWebP = false
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

// Flags must land in the registered flag variables when parsed off a
// command line, and parsing must stop at the first non-flag argument
// so the subcommand and its arguments survive.
func TestParseFlagsFromCommandLine(t *testing.T) {
	defer func() {
		*flagConfig = ""
		*flagDebug = false
		*flagWorkers = 0
	}()

	err := flag.CommandLine.Parse([]string{
		"-config", "custom.yaml", "-debug", "-workers", "8", "wld", "a.s3d",
	})
	if err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	if ConfigPath() != "custom.yaml" {
		t.Errorf("ConfigPath = %q, want custom.yaml", ConfigPath())
	}
	cfg := Default()
	applyFlags(cfg)
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Archives.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Archives.Workers)
	}

	if flag.NArg() != 2 || flag.Arg(0) != "wld" || flag.Arg(1) != "a.s3d" {
		t.Errorf("remaining args = %v, want [wld a.s3d]", flag.Args())
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Archives.Paths = []string{"gfaydark.s3d"}
	cfg.Archives.Workers = 6
	cfg.Export.Dir = "dump"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("reloading saved config: %v", err)
	}
	if len(loaded.Archives.Paths) != 1 || loaded.Archives.Paths[0] != "gfaydark.s3d" {
		t.Errorf("paths = %v", loaded.Archives.Paths)
	}
	if loaded.Archives.Workers != 6 {
		t.Errorf("workers = %d, want 6", loaded.Archives.Workers)
	}
	if loaded.Export.Dir != "dump" {
		t.Errorf("export dir = %q, want dump", loaded.Export.Dir)
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
archives:
  workers: 2
export:
  dir: from-file
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagExportDir = "from-flag"
	defer func() {
		*flagConfig = ""
		*flagExportDir = ""
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Export dir should come from the flag, workers from the file.
	if cfg.Export.Dir != "from-flag" {
		t.Errorf("expected export dir from flag, got %s", cfg.Export.Dir)
	}
	if cfg.Archives.Workers != 2 {
		t.Errorf("expected workers 2 from file, got %d", cfg.Archives.Workers)
	}
}
