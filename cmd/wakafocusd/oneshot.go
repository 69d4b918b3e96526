package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wakafocusd/internal/focus"
)

// oneshotTimeout bounds the wait for each captured event.
const oneshotTimeout = 30 * time.Second

func newOneshotCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "oneshot",
		Short: "Capture a few focus events and exit",
		Long:  "Connects to the Hyprland event socket, prints normalized focus events\nas they arrive, and exits. Useful for verifying the environment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneshot(count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of events to capture")

	return cmd
}

func runOneshot(count int) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	if _, err := focus.SocketPath(); err != nil {
		for _, diag := range focus.Diagnostics() {
			fmt.Fprintln(os.Stderr, diag)
		}
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := make(chan focus.Event, 32)
	go focus.NewSource(log).Stream(ctx, events)

	for captured := 0; captured < count; {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(oneshotTimeout):
			fmt.Fprintln(os.Stderr, "timed out waiting for focus events")
			return nil
		case event := <-events:
			captured++
			fmt.Printf("[%d/%d] class=%s title=%q window_id=%s\n",
				captured, count, event.AppClass, event.Title, event.WindowID)
		}
	}

	return nil
}
