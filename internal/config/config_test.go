package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestLoad_CreatesDefaults(t *testing.T) {
	home := withHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, "en-US", cfg.Locale)
	assert.False(t, cfg.Rounding.Enabled)
	assert.FileExists(t, filepath.Join(home, ".lifemanager", "config.toml"))
	assert.DirExists(t, filepath.Join(home, ".lifemanager", "db"))
}

func TestLoad_ReadsExistingFile(t *testing.T) {
	home := withHome(t)
	require.NoError(t, EnsureDirectories())

	content := `default_currency = "USD"
locale = "de-DE"
reports_output = "~/reports"

[rounding]
enabled = true
minutes = 30
direction = "up"
`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lifemanager", "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, filepath.Join(home, "reports"), cfg.ReportsOutput)
	assert.Equal(t, 30*time.Minute, cfg.RoundingStep())
	assert.Equal(t, time.Monday, cfg.Calendar().FirstWeekday)
}

func TestLoad_RejectsBadRounding(t *testing.T) {
	home := withHome(t)
	require.NoError(t, EnsureDirectories())

	content := "[rounding]\nenabled = true\nminutes = 15\ndirection = \"sideways\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".lifemanager", "config.toml"), []byte(content), 0644))

	_, err := Load()
	assert.ErrorContains(t, err, "rounding.direction")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad locale", func(c *Config) { c.Locale = "not a locale!" }, true},
		{"zero minutes", func(c *Config) { c.Rounding.Enabled = true; c.Rounding.Minutes = 0 }, true},
		{"disabled rounding ignores direction", func(c *Config) { c.Rounding.Direction = "nope" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoundingStep_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Duration(0), cfg.RoundingStep())
}
