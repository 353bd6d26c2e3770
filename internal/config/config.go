// ABOUTME: Inkwell configuration: YAML file, environment overrides, defaults.
// ABOUTME: Handles XDG config paths and validation of autosave timings and log level.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/charmbracelet/log"
	"github.com/harper/inkwell/internal/autosave"
	"github.com/harper/inkwell/internal/db"
	"gopkg.in/yaml.v3"
)

// Autosave controls the debounced writer.
type Autosave struct {
	// Enabled turns deferred saving on (default: true)
	Enabled bool `yaml:"enabled" env:"INKWELL_AUTOSAVE"`

	// Debounce is the quiet period before a buffered edit is written (default: 1s)
	Debounce time.Duration `yaml:"debounce" env:"INKWELL_DEBOUNCE"`

	// WriteTimeout bounds a single deferred write (default: 10s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"INKWELL_WRITE_TIMEOUT"`
}

// Config holds inkwell settings.
type Config struct {
	DBPath     string   `yaml:"db_path,omitempty" env:"INKWELL_DB"`
	JournalDir string   `yaml:"journal_dir,omitempty" env:"INKWELL_JOURNAL"`
	LogLevel   string   `yaml:"log_level" env:"INKWELL_LOG_LEVEL"`
	Autosave   Autosave `yaml:"autosave"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DBPath:     db.DefaultPath(),
		JournalDir: DefaultJournalDir(),
		LogLevel:   "warn",
		Autosave: Autosave{
			Enabled:      true,
			Debounce:     autosave.DefaultDebounce,
			WriteTimeout: autosave.DefaultWriteTimeout,
		},
	}
}

// DefaultJournalDir places the autosave journal beside the database.
func DefaultJournalDir() string {
	return filepath.Join(db.DataDir(), "journal")
}

// Dir returns the configuration directory path.
func Dir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "inkwell")
}

// Path returns the path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config file at path, if present, then applies environment
// overrides. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Validate rejects settings the autosave coordinator or logger cannot use.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is empty")
	}
	if c.Autosave.Debounce <= 0 {
		return fmt.Errorf("config: autosave.debounce must be positive, got %s", c.Autosave.Debounce)
	}
	if c.Autosave.WriteTimeout <= 0 {
		return fmt.Errorf("config: autosave.write_timeout must be positive, got %s", c.Autosave.WriteTimeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return lvl, nil
}
