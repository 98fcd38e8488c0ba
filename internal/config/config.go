package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/GwydionBr/life-manager/internal/timeline"
)

type Config struct {
	DefaultCurrency string   `toml:"default_currency"`
	Locale          string   `toml:"locale"`
	LogLevel        string   `toml:"log_level"`
	ReportsOutput   string   `toml:"reports_output"`
	Rounding        Rounding `toml:"rounding"`
}

// Rounding controls how the worked time of new sessions is snapped.
type Rounding struct {
	Enabled   bool   `toml:"enabled"`
	Minutes   int    `toml:"minutes"`
	Direction string `toml:"direction"`
}

func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DefaultCurrency: "EUR",
		Locale:          "en-US",
		LogLevel:        "info",
		ReportsOutput:   filepath.Join(homeDir, "Documents", "reports"),
		Rounding: Rounding{
			Enabled:   false,
			Minutes:   15,
			Direction: string(timeline.RoundNearest),
		},
	}
}

func AppDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lifemanager"), nil
}

func ConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func DatabasePath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "db", "lifemanager.sqlite"), nil
}

func ErrorLogPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "errors.log"), nil
}

func EnsureDirectories() error {
	dir, err := AppDir()
	if err != nil {
		return err
	}

	// Create main directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create db subdirectory
	dbDir := filepath.Join(dir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return err
	}

	return nil
}

func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := EnsureDirectories(); err != nil {
			return nil, err
		}
		if err := Save(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// Load existing config
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg.ReportsOutput = expandPath(cfg.ReportsOutput)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// Validate checks the values that cannot be fixed up silently.
func (c *Config) Validate() error {
	if _, err := c.Language(); err != nil {
		return err
	}
	if c.Rounding.Enabled {
		if c.Rounding.Minutes <= 0 {
			return fmt.Errorf("rounding.minutes must be positive, got %d", c.Rounding.Minutes)
		}
		if _, err := timeline.ParseRoundDirection(c.Rounding.Direction); err != nil {
			return fmt.Errorf("rounding.direction: %w", err)
		}
	}
	return nil
}

// Language parses the configured locale.
func (c *Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("locale %q: %w", c.Locale, err)
	}
	return tag, nil
}

// Calendar returns the week layout for the configured locale in local time.
func (c *Config) Calendar() timeline.Calendar {
	tag, err := c.Language()
	if err != nil {
		tag = language.AmericanEnglish
	}
	return timeline.CalendarFor(tag, time.Local)
}

// RoundingStep returns the configured step, or zero when rounding is off.
func (c *Config) RoundingStep() time.Duration {
	if !c.Rounding.Enabled {
		return 0
	}
	return time.Duration(c.Rounding.Minutes) * time.Minute
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
