package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOrCreateCreatesProctermConf(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PROCTERM_HOME", home)

	cfg, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if cfg.Version != schemaVersion {
		t.Fatalf("version = %d, want %d", cfg.Version, schemaVersion)
	}
	if cfg.DataHome != home {
		t.Fatalf("data home = %q, want %q", cfg.DataHome, home)
	}
	grace, err := cfg.Termination.GraceDuration()
	if err != nil || grace != 6*time.Second {
		t.Fatalf("grace = %v err=%v, want 6s", grace, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, fileName)); err != nil {
		t.Fatalf("expected %s, stat error: %v", fileName, err)
	}
}

func TestLoadOrCreateAppliesEnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PROCTERM_HOME", home)
	t.Setenv("PROCTERM_TERMINATION__GRACE", "250ms")
	t.Setenv("PROCTERM_TERMINATION__SIGNAL", "INT")
	t.Setenv("PROCTERM_TERMINATION__GROUP", "true")

	cfg, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if cfg.Termination.Grace != "250ms" {
		t.Fatalf("grace = %q, want 250ms", cfg.Termination.Grace)
	}
	if cfg.Termination.Signal != "INT" {
		t.Fatalf("signal = %q, want INT", cfg.Termination.Signal)
	}
	if !cfg.Termination.Group {
		t.Fatalf("expected group override to be applied")
	}
}

func TestLoadOrCreateMigratesVersion1(t *testing.T) {
	home := t.TempDir()
	t.Setenv("PROCTERM_HOME", home)

	legacy := []byte("{\n  \"version\": 1,\n  \"data_home\": \"" + home + "\",\n  \"termination\": {\n    \"grace_seconds\": 4,\n    \"signal\": \"HUP\"\n  }\n}\n")
	if err := os.WriteFile(filepath.Join(home, fileName), legacy, 0o644); err != nil {
		t.Fatalf("write legacy config error: %v", err)
	}

	cfg, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if cfg.Version != schemaVersion {
		t.Fatalf("version = %d, want %d", cfg.Version, schemaVersion)
	}
	if cfg.Termination.Grace != "4s" {
		t.Fatalf("grace = %q, want 4s", cfg.Termination.Grace)
	}
	if cfg.Termination.GraceSeconds != 0 {
		t.Fatalf("legacy grace_seconds kept: %d", cfg.Termination.GraceSeconds)
	}
	if cfg.Termination.Signal != "HUP" {
		t.Fatalf("signal = %q, want HUP", cfg.Termination.Signal)
	}

	matches, err := filepath.Glob(filepath.Join(home, "procterm.backup.*.conf"))
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("expected migration backup file")
	}
}

func TestMigrateRejectsNewerVersion(t *testing.T) {
	if _, err := migrate(Config{Version: schemaVersion + 1}, t.TempDir()); err == nil {
		t.Fatalf("expected error for newer config version")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := t.TempDir()
	cases := map[string]func(*Config){
		"grace":    func(c *Config) { c.Termination.Grace = "soon" },
		"negative": func(c *Config) { c.Termination.Grace = "-1s" },
		"poll":     func(c *Config) { c.Termination.PollInterval = "0s" },
		"signal":   func(c *Config) { c.Termination.Signal = "KILL" },
		"home":     func(c *Config) { c.DataHome = " " },
	}
	for name, mutate := range cases {
		cfg := defaults(base)
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	base := t.TempDir()
	cfg := Config{
		DataHome:    base,
		Termination: Termination{Grace: "1s", LockTimeoutSeconds: 2},
	}
	out := applyDefaults(cfg, base)
	if out.Termination.Grace != "1s" || out.Termination.LockTimeoutSeconds != 2 {
		t.Fatalf("explicit values overwritten: %+v", out.Termination)
	}
	if out.Termination.PollInterval != "150ms" {
		t.Fatalf("poll interval default = %q", out.Termination.PollInterval)
	}
	if out.Logging.FilePath != filepath.Join(base, "logs", "procterm.log") {
		t.Fatalf("log path default = %q", out.Logging.FilePath)
	}
}
