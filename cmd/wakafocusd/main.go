// wakafocusd - Hyprland-first user daemon for WakaTime app heartbeats.
//
// Tracks the currently focused desktop application and sends
// heartbeats to WakaTime using wakatime-cli.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
