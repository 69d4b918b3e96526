// Package sink invokes wakatime-cli to deliver heartbeats.
//
// The sink is a collaborator boundary: the daemon hands it an entity
// and a category and gets back success or failure. Failures are logged
// with rate limiting and never crash the event loop.
package sink

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"wakafocusd/internal/config"
	"wakafocusd/internal/heartbeat"
	"wakafocusd/internal/logging"
)

// pluginName identifies this daemon to WakaTime.
const pluginName = "wakafocusd"

// Error log rate limiting: the first errorLogBurst failures are logged
// in full, then only every errorLogEvery-th.
const (
	errorLogBurst = 5
	errorLogEvery = 10
)

// Stats reports sink health for the daemon state file.
type Stats struct {
	Sent                int       `json:"sent"`
	Failed              int       `json:"failed"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success,omitzero"`
}

// Client spawns wakatime-cli to send heartbeats.
//
// All methods are called from the single orchestrator goroutine; the
// counters need no locking.
type Client struct {
	log *logging.Logger

	cliPath    string
	configPath string
	version    string
	dryRun     bool

	// errorsLogged rate-limits failure logging. Owned here rather than
	// process-wide so tests and multiple clients stay independent.
	errorsLogged int

	stats Stats
}

// NewClient locates wakatime-cli and prepares a client. dry_run skips
// the lookup requirement only if a configured path is also absent.
func NewClient(cfg *config.Config, version string, log *logging.Logger) (*Client, error) {
	cliPath, err := findCLI(cfg.WakatimeCLIPath)
	if err != nil {
		if !cfg.DryRun {
			return nil, err
		}
		cliPath = "wakatime-cli"
	}

	c := &Client{
		log:        log.WithComponent("sink"),
		cliPath:    cliPath,
		configPath: cfg.WakatimeConfigPath,
		version:    version,
		dryRun:     cfg.DryRun,
	}

	c.log.Info("using wakatime-cli", "path", cliPath, "dry_run", cfg.DryRun)
	return c, nil
}

// Send delivers one heartbeat. A non-zero exit or spawn failure is
// returned as an error; the caller must not advance throttle state on
// failure.
func (c *Client) Send(ctx context.Context, entity heartbeat.Entity, category heartbeat.Category) error {
	args := c.buildArgs(entity, category)

	if c.dryRun {
		c.log.Info("dry run, would execute",
			"cmd", c.cliPath+" "+strings.Join(args, " "))
		c.recordSuccess()
		return nil
	}

	cmd := exec.CommandContext(ctx, c.cliPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		c.recordFailure(err, output)
		return fmt.Errorf("wakatime-cli: %w", err)
	}

	c.recordSuccess()
	return nil
}

// Stats returns a copy of the sink health counters.
func (c *Client) Stats() Stats {
	return c.stats
}

func (c *Client) buildArgs(entity heartbeat.Entity, category heartbeat.Category) []string {
	args := []string{
		"--entity-type", "app",
		"--entity", string(entity),
		"--plugin", pluginName + "/" + c.version,
		"--category", string(category),
	}

	if c.configPath != "" {
		args = append(args, "--config", c.configPath)
	}

	return args
}

func (c *Client) recordSuccess() {
	c.stats.Sent++
	c.stats.ConsecutiveFailures = 0
	c.stats.LastSuccess = time.Now()
}

func (c *Client) recordFailure(err error, output []byte) {
	c.stats.Failed++
	c.stats.ConsecutiveFailures++

	c.errorsLogged++
	if c.errorsLogged <= errorLogBurst || c.errorsLogged%errorLogEvery == 0 {
		c.log.Error("wakatime-cli failed",
			"error", err, "output", strings.TrimSpace(string(output)))
		if c.errorsLogged == errorLogBurst {
			c.log.Warn("rate-limiting sink error logs",
				"showing_every", errorLogEvery)
		}
	}
}

// findCLI locates the wakatime-cli binary: the configured path, then
// $PATH, then ~/.wakatime/wakatime-cli* (the official installer drops
// platform-suffixed binaries there).
func findCLI(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured wakatime_cli_path: %w", err)
		}
		return configured, nil
	}

	if path, err := exec.LookPath("wakatime-cli"); err == nil {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err == nil {
		wakatimeDir := filepath.Join(home, ".wakatime")

		exact := filepath.Join(wakatimeDir, "wakatime-cli")
		if _, err := os.Stat(exact); err == nil {
			return exact, nil
		}

		entries, err := os.ReadDir(wakatimeDir)
		if err == nil {
			for _, entry := range entries {
				name := entry.Name()
				if strings.HasPrefix(name, "wakatime-cli") && !strings.HasSuffix(name, ".zip") && !entry.IsDir() {
					return filepath.Join(wakatimeDir, name), nil
				}
			}
		}
	}

	return "", fmt.Errorf("wakatime-cli not found; install it or set wakatime_cli_path (see https://wakatime.com/terminal)")
}
