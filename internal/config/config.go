package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"procterm/internal/process"
)

const (
	schemaVersion = 2
	fileName      = "procterm.conf"
	envPrefix     = "PROCTERM_"
)

type Termination struct {
	Grace              string `json:"grace"`
	Signal             string `json:"signal"`
	Group              bool   `json:"group"`
	PollInterval       string `json:"poll_interval"`
	LockTimeoutSeconds int    `json:"lock_timeout_seconds"`

	// GraceSeconds is the version 1 spelling of Grace.
	GraceSeconds int `json:"grace_seconds,omitempty"`
}

type Logging struct {
	FilePath       string `json:"file_path"`
	MaxSizeMB      int    `json:"max_size_mb"`
	RetentionDays  int    `json:"retention_days"`
	MaxBackupFiles int    `json:"max_backup_files"`
	Level          string `json:"level"`
}

type Service struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	Command     string   `json:"command"`
	Args        []string `json:"args"`
	Workdir     string   `json:"workdir"`
}

type Config struct {
	Version     int         `json:"version"`
	DataHome    string      `json:"data_home"`
	Termination Termination `json:"termination"`
	Logging     Logging     `json:"logging"`
	Service     Service     `json:"service"`
}

func (t Termination) GraceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(t.Grace))
	if err != nil {
		return 0, fmt.Errorf("termination.grace: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("termination.grace must not be negative: %s", t.Grace)
	}
	return d, nil
}

func (t Termination) PollDuration() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(t.PollInterval))
	if err != nil {
		return 0, fmt.Errorf("termination.poll_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("termination.poll_interval must be positive: %s", t.PollInterval)
	}
	return d, nil
}

func (t Termination) LockTimeout() time.Duration {
	return time.Duration(t.LockTimeoutSeconds) * time.Second
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataHome) == "" {
		return errors.New("data_home is empty in config")
	}
	if _, err := c.Termination.GraceDuration(); err != nil {
		return err
	}
	if _, err := c.Termination.PollDuration(); err != nil {
		return err
	}
	if _, err := process.NormalizeSignal(c.Termination.Signal); err != nil {
		return fmt.Errorf("termination.signal: %w", err)
	}
	return nil
}

func LoadOrCreate() (Config, error) {
	base, err := resolveBaseDir()
	if err != nil {
		return Config{}, err
	}
	path := filepath.Join(base, fileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg := defaults(base)
		if err := save(path, cfg); err != nil {
			return Config{}, err
		}
		return loadWithKoanf(path, base)
	}

	cfg, err := loadFromPath(path)
	if err != nil {
		return Config{}, err
	}
	if cfg.Version != schemaVersion {
		cfg, err = migrate(cfg, base)
		if err != nil {
			return Config{}, err
		}
		cfg = applyDefaults(cfg, base)
		if err := save(path, cfg); err != nil {
			return Config{}, err
		}
	}
	return loadWithKoanf(path, base)
}

func resolveBaseDir() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("PROCTERM_HOME")); explicit != "" {
		return explicit, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".procterm"), nil
}

func loadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func loadWithKoanf(path, base string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfjson.Parser()); err != nil {
		return Config{}, err
	}
	if err := k.Load(env.Provider(envPrefix, ".", func(key string) string {
		n := strings.TrimPrefix(key, envPrefix)
		n = strings.ToLower(n)
		n = strings.ReplaceAll(n, "__", ".")
		return n
	}), nil); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return Config{}, err
	}
	cfg = applyDefaults(cfg, base)
	return cfg, nil
}

func defaults(base string) Config {
	return Config{
		Version:  schemaVersion,
		DataHome: base,
		Termination: Termination{
			Grace:              "6s",
			Signal:             process.DefaultSignal,
			Group:              false,
			PollInterval:       "150ms",
			LockTimeoutSeconds: 8,
		},
		Logging: Logging{
			FilePath:       filepath.Join(base, "logs", "procterm.log"),
			MaxSizeMB:      10,
			RetentionDays:  7,
			MaxBackupFiles: 20,
			Level:          "info",
		},
		Service: Service{
			Name:        "procterm",
			DisplayName: "procterm supervised command",
			Description: "Runs a command and stops it gracefully",
		},
	}
}

func applyDefaults(cfg Config, base string) Config {
	d := defaults(base)
	if cfg.Version == 0 {
		cfg.Version = d.Version
	}
	if strings.TrimSpace(cfg.DataHome) == "" {
		cfg.DataHome = d.DataHome
	}
	if strings.TrimSpace(cfg.Termination.Grace) == "" {
		cfg.Termination.Grace = d.Termination.Grace
	}
	if strings.TrimSpace(cfg.Termination.Signal) == "" {
		cfg.Termination.Signal = d.Termination.Signal
	}
	if strings.TrimSpace(cfg.Termination.PollInterval) == "" {
		cfg.Termination.PollInterval = d.Termination.PollInterval
	}
	if cfg.Termination.LockTimeoutSeconds <= 0 {
		cfg.Termination.LockTimeoutSeconds = d.Termination.LockTimeoutSeconds
	}
	if strings.TrimSpace(cfg.Logging.FilePath) == "" {
		cfg.Logging.FilePath = filepath.Join(cfg.DataHome, "logs", "procterm.log")
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = d.Logging.MaxSizeMB
	}
	if cfg.Logging.RetentionDays <= 0 {
		cfg.Logging.RetentionDays = d.Logging.RetentionDays
	}
	if cfg.Logging.MaxBackupFiles <= 0 {
		cfg.Logging.MaxBackupFiles = d.Logging.MaxBackupFiles
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = d.Service.Name
	}
	if strings.TrimSpace(cfg.Service.DisplayName) == "" {
		cfg.Service.DisplayName = d.Service.DisplayName
	}
	if strings.TrimSpace(cfg.Service.Description) == "" {
		cfg.Service.Description = d.Service.Description
	}
	return cfg
}

func save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataHome, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
