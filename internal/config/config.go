// Package config handles configuration loading, validation, and hot
// reloading for wakafocusd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Title strategies for entity construction when track_titles is enabled.
const (
	TitleStrategyIgnore = "ignore"
	TitleStrategyAppend = "append"
)

// Config holds the complete daemon configuration.
type Config struct {
	// HeartbeatIntervalSeconds is the periodic resend check interval.
	HeartbeatIntervalSeconds int `toml:"heartbeat_interval_seconds" json:"heartbeat_interval_seconds" yaml:"heartbeat_interval_seconds"`

	// MinEntityResendSeconds is the minimum time before a heartbeat for
	// the same entity is sent again.
	MinEntityResendSeconds int `toml:"min_entity_resend_seconds" json:"min_entity_resend_seconds" yaml:"min_entity_resend_seconds"`

	// TrackTitles includes window titles in tracked entities.
	// Titles may contain sensitive information; off by default.
	TrackTitles bool `toml:"track_titles" json:"track_titles" yaml:"track_titles"`

	// TitleStrategy is how titles are used when TrackTitles is on:
	// "ignore" or "append".
	TitleStrategy string `toml:"title_strategy" json:"title_strategy" yaml:"title_strategy"`

	// DefaultCategory is the category assigned when no rule matches.
	DefaultCategory string `toml:"default_category" json:"default_category" yaml:"default_category"`

	// CategoryRules map app classes to categories, first match wins.
	CategoryRules []CategoryRule `toml:"category_rules" json:"category_rules" yaml:"category_rules"`

	// AppAllowlist, when set, restricts tracking to the listed classes.
	AppAllowlist []string `toml:"app_allowlist" json:"app_allowlist" yaml:"app_allowlist"`

	// AppDenylist excludes the listed classes, even if allowlisted.
	AppDenylist []string `toml:"app_denylist" json:"app_denylist" yaml:"app_denylist"`

	// WakatimeCLIPath overrides wakatime-cli discovery.
	WakatimeCLIPath string `toml:"wakatime_cli_path" json:"wakatime_cli_path" yaml:"wakatime_cli_path"`

	// WakatimeConfigPath is forwarded to wakatime-cli --config.
	WakatimeConfigPath string `toml:"wakatime_config_path" json:"wakatime_config_path" yaml:"wakatime_config_path"`

	// DryRun logs heartbeat commands instead of executing them.
	DryRun bool `toml:"dry_run" json:"dry_run" yaml:"dry_run"`

	// IdleCheckIntervalSeconds is the logind IdleHint poll interval.
	IdleCheckIntervalSeconds int `toml:"idle_check_interval_seconds" json:"idle_check_interval_seconds" yaml:"idle_check_interval_seconds"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// CategoryRule assigns a category to app classes matching a pattern.
type CategoryRule struct {
	// Pattern is a case-insensitive regular expression matched against
	// the app class.
	Pattern string `toml:"pattern" json:"pattern" yaml:"pattern"`

	// Category is the category name assigned on match.
	Category string `toml:"category" json:"category" yaml:"category"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the output format: text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// File, when set, duplicates log output to this path.
	File string `toml:"file" json:"file" yaml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		HeartbeatIntervalSeconds: 120,
		MinEntityResendSeconds:   120,
		TrackTitles:              false,
		TitleStrategy:            TitleStrategyIgnore,
		DefaultCategory:          "coding",
		IdleCheckIntervalSeconds: 10,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.HeartbeatIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat_interval_seconds must be positive, got %d", c.HeartbeatIntervalSeconds))
	}
	if c.MinEntityResendSeconds < 0 {
		errs = append(errs, fmt.Errorf("min_entity_resend_seconds must not be negative, got %d", c.MinEntityResendSeconds))
	}
	if c.IdleCheckIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("idle_check_interval_seconds must be positive, got %d", c.IdleCheckIntervalSeconds))
	}

	switch c.TitleStrategy {
	case TitleStrategyIgnore, TitleStrategyAppend:
	default:
		errs = append(errs, fmt.Errorf("title_strategy must be %q or %q, got %q",
			TitleStrategyIgnore, TitleStrategyAppend, c.TitleStrategy))
	}

	if c.DefaultCategory == "" {
		errs = append(errs, errors.New("default_category must not be empty"))
	}

	for i, rule := range c.CategoryRules {
		if rule.Pattern == "" {
			errs = append(errs, fmt.Errorf("category_rules[%d]: pattern must not be empty", i))
		}
		if rule.Category == "" {
			errs = append(errs, fmt.Errorf("category_rules[%d]: category must not be empty", i))
		}
	}

	return errors.Join(errs...)
}

// DefaultPath returns the default configuration file path,
// $XDG_CONFIG_HOME/wakafocusd/config.toml.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "wakafocusd", "config.toml")
}

// StateDir returns the daemon state directory,
// $XDG_STATE_HOME/wakafocusd.
func StateDir() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, _ := os.UserHomeDir()
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "wakafocusd")
}
