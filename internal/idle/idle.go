// Package idle tracks session idle state via the systemd-logind DBus
// interface.
//
// A background poller reads the session's IdleHint property on an
// interval and caches the boolean for lock-free reads. If no logind
// session can be resolved at startup, monitoring is disabled for the
// process lifetime and IsIdle reports false (fail-open): the daemon
// keeps working, it just stops gating on idleness.
package idle

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/godbus/dbus/v5"

	"wakafocusd/internal/logging"
)

const (
	logindService    = "org.freedesktop.login1"
	logindPath       = "/org/freedesktop/login1"
	managerInterface = "org.freedesktop.login1.Manager"
	sessionInterface = "org.freedesktop.login1.Session"

	idleHintProperty = sessionInterface + ".IdleHint"

	envSessionID = "XDG_SESSION_ID"
)

// Monitor polls systemd-logind for the session idle hint.
//
// The cached hint has single-writer/multi-reader discipline: only the
// polling goroutine writes it, any goroutine may read it through IsIdle.
type Monitor struct {
	log *logging.Logger

	idleHint atomic.Bool
	enabled  atomic.Bool

	conn        *dbus.Conn
	sessionPath dbus.ObjectPath
}

// NewMonitor creates an idle monitor. It does not touch DBus until
// StartPolling runs.
func NewMonitor(log *logging.Logger) *Monitor {
	m := &Monitor{log: log.WithComponent("idle")}
	m.enabled.Store(true)
	return m
}

// IsIdle returns the cached idle state without blocking. It reports
// false when monitoring is disabled.
func (m *Monitor) IsIdle() bool {
	if !m.enabled.Load() {
		return false
	}
	return m.idleHint.Load()
}

// Disable turns off idle monitoring for the process lifetime.
func (m *Monitor) Disable() {
	m.enabled.Store(false)
}

// StartPolling launches the background poll goroutine. It returns
// immediately; session resolution happens on the goroutine so a slow
// or absent DBus never blocks startup.
func (m *Monitor) StartPolling(ctx context.Context, interval time.Duration) {
	go m.pollLoop(ctx, interval)
}

func (m *Monitor) pollLoop(ctx context.Context, interval time.Duration) {
	if err := m.init(); err != nil {
		m.log.Warn("idle monitoring disabled: could not resolve logind session", "error", err)
		m.Disable()
		return
	}

	m.log.Info("idle monitor started", "session", string(m.sessionPath), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.pollOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce()
		}
	}
}

// init connects to the system bus and resolves the session object
// path. XDG_SESSION_ID is preferred; the logind "self" and "auto"
// session aliases are probed as fallbacks.
func (m *Monitor) init() error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	m.conn = conn

	if sessionID := os.Getenv(envSessionID); sessionID != "" {
		path, err := m.sessionByID(sessionID)
		if err != nil {
			return fmt.Errorf("resolve session %q: %w", sessionID, err)
		}
		m.sessionPath = path
		return nil
	}

	for _, alias := range []string{"self", "auto"} {
		path := dbus.ObjectPath(logindPath + "/session/" + alias)
		if _, err := m.idleHintAt(path); err == nil {
			m.sessionPath = path
			return nil
		}
	}

	return fmt.Errorf("no logind session found; set %s or ensure a logind session exists", envSessionID)
}

// sessionByID resolves a session object path via Manager.GetSession.
func (m *Monitor) sessionByID(sessionID string) (dbus.ObjectPath, error) {
	obj := m.conn.Object(logindService, dbus.ObjectPath(logindPath))

	var path dbus.ObjectPath
	if err := obj.Call(managerInterface+".GetSession", 0, sessionID).Store(&path); err != nil {
		return "", fmt.Errorf("GetSession: %w", err)
	}
	return path, nil
}

// idleHintAt reads the IdleHint property of a session object.
func (m *Monitor) idleHintAt(path dbus.ObjectPath) (bool, error) {
	variant, err := m.conn.Object(logindService, path).GetProperty(idleHintProperty)
	if err != nil {
		return false, fmt.Errorf("get IdleHint: %w", err)
	}

	idle, ok := variant.Value().(bool)
	if !ok {
		return false, fmt.Errorf("IdleHint is %T, not bool", variant.Value())
	}
	return idle, nil
}

// pollOnce refreshes the cached idle hint. Poll errors are transient:
// they are logged and monitoring stays enabled.
func (m *Monitor) pollOnce() {
	idle, err := m.idleHintAt(m.sessionPath)
	if err != nil {
		m.log.Warn("idle hint poll failed", "error", err)
		return
	}

	if prev := m.idleHint.Swap(idle); prev != idle {
		m.log.Debug("idle state changed", "idle", idle)
	}
}
