package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wakafocusd/internal/config"
	"wakafocusd/internal/logging"
)

// version identifies this build to WakaTime via --plugin.
const version = "0.3.0"

// Global flags.
var (
	flagConfig      string
	flagLogLevel    string
	flagLogFormat   string
	flagDryRun      bool
	flagPrintEvents bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wakafocusd",
		Short:         "WakaTime focus daemon for Hyprland",
		Long:          "wakafocusd tracks the currently focused desktop application on Hyprland\nand sends rate-limited activity heartbeats to WakaTime.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format (text, json)")
	root.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "log heartbeat commands instead of executing them")
	root.PersistentFlags().BoolVar(&flagPrintEvents, "print-events", false, "print normalized focus events to stdout")

	root.AddCommand(
		newRunCmd(),
		newOneshotCmd(),
		newDiagnoseCmd(),
		newStatusCmd(),
	)

	return root
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (*config.Loader, *config.Config, error) {
	loader := config.NewLoader(flagConfig)

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	if flagDryRun {
		cfg.DryRun = true
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Logging.Format = flagLogFormat
	}

	return loader, cfg, nil
}

// setupLogging builds the process logger from the effective config.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		FilePath:  cfg.Logging.File,
		Component: "wakafocusd",
	})
	if err != nil {
		return nil, err
	}

	logging.SetDefault(log)
	return log, nil
}
