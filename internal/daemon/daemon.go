// Package daemon runs the wakafocusd event loop.
//
// The orchestrator composes the focus source, idle monitor, heartbeat
// builder, throttle, and sink under one select loop: focus events and
// a periodic timer tick are processed to completion, one at a time, so
// no two sink sends are ever in flight together and throttle state
// transitions are race-free by construction.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wakafocusd/internal/config"
	"wakafocusd/internal/focus"
	"wakafocusd/internal/heartbeat"
	"wakafocusd/internal/logging"
	"wakafocusd/internal/sink"
)

// eventBuffer bounds the reader-to-orchestrator channel. Single
// producer, single consumer; delivery order is the production order.
const eventBuffer = 32

// Source streams normalized focus events until ctx is cancelled.
type Source interface {
	Stream(ctx context.Context, events chan<- focus.Event) error
}

// IdleChecker reports cached session idleness without blocking.
type IdleChecker interface {
	IsIdle() bool
}

// Sender delivers one heartbeat to the tracking sink.
type Sender interface {
	Send(ctx context.Context, entity heartbeat.Entity, category heartbeat.Category) error
	Stats() sink.Stats
}

// Daemon is the orchestrator.
type Daemon struct {
	log *logging.Logger
	cfg *config.Config

	source   Source
	idle     IdleChecker
	sender   Sender
	builder  *heartbeat.Builder
	throttle *heartbeat.Throttle

	// reload receives validated configs from the loader callback or
	// SIGHUP; the swap happens inside the loop so the builder is only
	// ever touched by the orchestrator goroutine.
	reload chan *config.Config

	// state persists daemon status for the status command; nil in tests.
	state *Manager

	printEvents bool
}

// Options configures a Daemon.
type Options struct {
	Config      *config.Config
	Source      Source
	Idle        IdleChecker
	Sender      Sender
	Log         *logging.Logger
	State       *Manager
	PrintEvents bool
}

// New wires up the orchestrator. Building the resolver here makes an
// invalid default category a fatal startup error.
func New(opts Options) (*Daemon, error) {
	builder, err := heartbeat.NewBuilder(opts.Config, opts.Log)
	if err != nil {
		return nil, fmt.Errorf("build heartbeat resolver: %w", err)
	}

	return &Daemon{
		log:         opts.Log.WithComponent("daemon"),
		cfg:         opts.Config,
		source:      opts.Source,
		idle:        opts.Idle,
		sender:      opts.Sender,
		builder:     builder,
		throttle:    heartbeat.NewThrottle(time.Duration(opts.Config.MinEntityResendSeconds) * time.Second),
		reload:      make(chan *config.Config, 1),
		state:       opts.State,
		printEvents: opts.PrintEvents,
	}, nil
}

// ApplyConfig hands a new configuration to the event loop. Safe to
// call from any goroutine; only the latest pending config is kept.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	for {
		select {
		case d.reload <- cfg:
			return
		default:
			select {
			case <-d.reload:
			default:
			}
		}
	}
}

// Run executes the event loop until ctx is cancelled or the event
// channel closes. Reader disconnections are handled inside the source
// and never surface here.
func (d *Daemon) Run(ctx context.Context) error {
	events := make(chan focus.Event, eventBuffer)

	go func() {
		if err := d.source.Stream(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Error("focus stream stopped", "error", err)
		}
		close(events)
	}()

	ticker := time.NewTicker(time.Duration(d.cfg.HeartbeatIntervalSeconds) * time.Second)
	defer ticker.Stop()

	d.log.Info("daemon started, waiting for focus events",
		"heartbeat_interval_s", d.cfg.HeartbeatIntervalSeconds,
		"min_resend_s", d.cfg.MinEntityResendSeconds)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return errors.New("focus event channel closed")
			}
			d.handleFocusEvent(ctx, event)

		case <-ticker.C:
			d.handleTick(ctx)

		case cfg := <-d.reload:
			d.applyConfig(cfg)
		}
	}
}

// handleFocusEvent runs one event through the pipeline: empty filter,
// allow/deny gate, resolve, idle gate, throttle, send.
func (d *Daemon) handleFocusEvent(ctx context.Context, event focus.Event) {
	if d.printEvents {
		fmt.Printf("[focus] class=%s title=%q window_id=%s\n",
			event.AppClass, event.Title, event.WindowID)
	}

	if event.Empty() {
		d.log.Debug("ignoring empty focus event")
		return
	}

	if !d.builder.Allowed(event.AppClass) {
		d.log.Debug("app filtered", "class", event.AppClass)
		return
	}

	d.dispatch(ctx, d.builder.Build(event))
}

// handleTick re-emits a heartbeat for the still-focused entity when
// the resend threshold has been reached. The last sent source event is
// re-resolved through the current builder in case rules were reloaded.
func (d *Daemon) handleTick(ctx context.Context) {
	last, ok := d.throttle.LastSent()
	if !ok {
		return
	}

	if !d.builder.Allowed(last.Source.AppClass) {
		return
	}

	d.dispatch(ctx, d.builder.Build(last.Source))
}

// dispatch applies the idle gate and throttle, then sends. Throttle
// state advances only on confirmed success, so a failed send is
// retried on the next event or tick instead of being silently eaten.
func (d *Daemon) dispatch(ctx context.Context, hb heartbeat.Heartbeat) {
	if d.idle.IsIdle() {
		d.log.Debug("session idle, dropping heartbeat", "entity", string(hb.Entity))
		return
	}

	if d.throttle.ShouldSend(hb.Entity) != heartbeat.Send {
		d.log.Debug("heartbeat throttled", "entity", string(hb.Entity))
		return
	}

	if err := d.sender.Send(ctx, hb.Entity, hb.Category); err != nil {
		d.log.Warn("heartbeat send failed", "entity", string(hb.Entity), "error", err)
		d.writeState()
		return
	}

	d.log.Debug("heartbeat sent", "entity", string(hb.Entity), "category", string(hb.Category))
	d.throttle.RecordSent(hb)
	d.writeState()
}

// applyConfig swaps in a reloaded configuration. Rules, filters, and
// the title strategy take effect immediately; interval changes apply
// on the next restart.
func (d *Daemon) applyConfig(cfg *config.Config) {
	builder, err := heartbeat.NewBuilder(cfg, d.log)
	if err != nil {
		d.log.Warn("config reload rejected", "error", err)
		return
	}

	d.builder = builder
	d.cfg = cfg
	d.log.Info("configuration reloaded")
}

func (d *Daemon) writeState() {
	if d.state == nil {
		return
	}
	if err := d.state.UpdateSinkStats(d.sender.Stats()); err != nil {
		d.log.Debug("state file update failed", "error", err)
	}
}
