package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 120, cfg.HeartbeatIntervalSeconds)
	assert.Equal(t, 120, cfg.MinEntityResendSeconds)
	assert.False(t, cfg.TrackTitles)
	assert.Equal(t, TitleStrategyIgnore, cfg.TitleStrategy)
	assert.Equal(t, "coding", cfg.DefaultCategory)
	assert.Equal(t, 10, cfg.IdleCheckIntervalSeconds)
	assert.False(t, cfg.DryRun)
	assert.Nil(t, cfg.AppAllowlist)
	assert.Nil(t, cfg.AppDenylist)

	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero heartbeat interval", func(c *Config) { c.HeartbeatIntervalSeconds = 0 }},
		{"negative resend", func(c *Config) { c.MinEntityResendSeconds = -1 }},
		{"zero idle interval", func(c *Config) { c.IdleCheckIntervalSeconds = 0 }},
		{"unknown title strategy", func(c *Config) { c.TitleStrategy = "prepend" }},
		{"empty default category", func(c *Config) { c.DefaultCategory = "" }},
		{"empty rule pattern", func(c *Config) {
			c.CategoryRules = []CategoryRule{{Pattern: "", Category: "browsing"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
heartbeat_interval_seconds = 60
track_titles = true
title_strategy = "append"
default_category = "browsing"
app_denylist = ["slack", "discord"]
dry_run = true

[[category_rules]]
pattern = "firefox|chromium"
category = "browsing"

[logging]
level = "debug"
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.HeartbeatIntervalSeconds)
	assert.True(t, cfg.TrackTitles)
	assert.Equal(t, TitleStrategyAppend, cfg.TitleStrategy)
	assert.Equal(t, "browsing", cfg.DefaultCategory)
	assert.Equal(t, []string{"slack", "discord"}, cfg.AppDenylist)
	assert.True(t, cfg.DryRun)
	assert.Equal(t, []CategoryRule{{Pattern: "firefox|chromium", Category: "browsing"}}, cfg.CategoryRules)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, 120, cfg.MinEntityResendSeconds)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
min_entity_resend_seconds: 30
app_allowlist: [code]
category_rules:
  - pattern: slack
    category: communicating
`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.MinEntityResendSeconds)
	assert.Equal(t, []string{"code"}, cfg.AppAllowlist)
	assert.Equal(t, []CategoryRule{{Pattern: "slack", Category: "communicating"}}, cfg.CategoryRules)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"track_titles": true, "title_strategy": "append"}`)

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)
	assert.True(t, cfg.TrackTitles)
	assert.Equal(t, TitleStrategyAppend, cfg.TitleStrategy)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.toml"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "config.toml", `heartbeat_interval_seconds = -5`)

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := writeConfig(t, "config.toml", `this is { not toml`)

	_, err := NewLoader(path).Load()
	require.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "config.toml", `heartbeat_interval_seconds = 60`)

	loader := NewLoader(path)
	defer loader.Close()

	_, err := loader.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	loader.OnChange(func(cfg *Config) { changed <- cfg })
	require.NoError(t, loader.Watch())

	require.NoError(t, os.WriteFile(path, []byte(`heartbeat_interval_seconds = 30`), 0o600))

	select {
	case cfg := <-changed:
		assert.Equal(t, 30, cfg.HeartbeatIntervalSeconds)
		assert.Equal(t, cfg, loader.Config())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}

func TestReloadKeepsOldConfigOnValidationFailure(t *testing.T) {
	path := writeConfig(t, "config.toml", `heartbeat_interval_seconds = 60`)

	loader := NewLoader(path)
	defer loader.Close()

	old, err := loader.Load()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`heartbeat_interval_seconds = 0`), 0o600))
	loader.Reload()

	select {
	case err := <-loader.Errors():
		assert.Error(t, err)
	default:
		t.Fatal("expected a reload error")
	}

	assert.Equal(t, old, loader.Config())
}
