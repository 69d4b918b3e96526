package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wakafocusd/internal/config"
	"wakafocusd/internal/daemon"
	"wakafocusd/internal/focus"
	"wakafocusd/internal/idle"
	"wakafocusd/internal/logging"
	"wakafocusd/internal/sink"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the focus tracking daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer loader.Close()

	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	log.Info("wakafocusd starting", "version", version, "config", loader.Path(), "dry_run", cfg.DryRun)

	// Fail fast when the Hyprland environment is absent. Once running,
	// socket loss is handled by the reconnect loop instead.
	if _, err := focus.SocketPath(); err != nil {
		log.Error("Hyprland environment not detected")
		for _, diag := range focus.Diagnostics() {
			log.Error(diag)
		}
		log.Error("if running as a systemd user service, ensure the variables are imported: " +
			"dbus-update-activation-environment --systemd HYPRLAND_INSTANCE_SIGNATURE XDG_RUNTIME_DIR")
		return err
	}

	sender, err := sink.NewClient(cfg, version, log)
	if err != nil {
		return err
	}

	state := daemon.NewManager(config.StateDir())
	if err := state.Start(version); err != nil {
		return err
	}
	defer state.Stop()

	monitor := idle.NewMonitor(log)

	d, err := daemon.New(daemon.Options{
		Config:      cfg,
		Source:      focus.NewSource(log),
		Idle:        monitor,
		Sender:      sender,
		Log:         log,
		State:       state,
		PrintEvents: flagPrintEvents,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startConfigReload(ctx, loader, d, log)

	monitor.StartPolling(ctx, time.Duration(cfg.IdleCheckIntervalSeconds)*time.Second)

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("wakafocusd stopped")
	return nil
}

// startConfigReload wires config hot reloading: fsnotify on the config
// file plus SIGHUP, both funneled through the loader so only validated
// configs reach the daemon.
func startConfigReload(ctx context.Context, loader *config.Loader, d *daemon.Daemon, log *logging.Logger) {
	loader.OnChange(d.ApplyConfig)

	if err := loader.Watch(); err != nil {
		log.Warn("config file watching unavailable", "error", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(hup)
				return
			case <-hup:
				log.Info("SIGHUP received, reloading configuration")
				loader.Reload()
			case err := <-loader.Errors():
				log.Warn("config reload failed", "error", err)
			}
		}
	}()
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Print environment diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, diag := range focus.Diagnostics() {
				fmt.Println(diag)
			}

			loader := config.NewLoader(flagConfig)
			if _, err := loader.Load(); err != nil {
				fmt.Printf("config: %s (%v)\n", loader.Path(), err)
			} else {
				fmt.Printf("config: %s\n", loader.Path())
			}

			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := daemon.NewManager(config.StateDir()).Status()

			if !status.Running {
				fmt.Println("wakafocusd is not running")
				return nil
			}

			fmt.Printf("running (pid %d, version %s, up %s)\n",
				status.PID, status.Version, status.Uptime.Round(time.Second))
			fmt.Printf("heartbeats: %d sent, %d failed\n", status.Sink.Sent, status.Sink.Failed)
			if !status.Sink.LastSuccess.IsZero() {
				fmt.Printf("last success: %s\n", status.Sink.LastSuccess.Format(time.RFC3339))
			}
			return nil
		},
	}
}
