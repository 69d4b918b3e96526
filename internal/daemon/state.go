package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"wakafocusd/internal/sink"
)

// State is the persistent daemon status, read by the status command.
type State struct {
	PID       int        `json:"pid"`
	StartedAt time.Time  `json:"started_at"`
	Version   string     `json:"version"`
	Sink      sink.Stats `json:"sink"`
}

// Manager handles the PID file and state file under the daemon's
// state directory.
type Manager struct {
	dir       string
	pidFile   string
	stateFile string

	state State
}

// NewManager creates a manager rooted at the given state directory.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:       dir,
		pidFile:   filepath.Join(dir, "daemon.pid"),
		stateFile: filepath.Join(dir, "daemon.state"),
	}
}

// Start records the current process as the running daemon.
func (m *Manager) Start(version string) error {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	if pid, err := m.ReadPID(); err == nil && isProcessRunning(pid) && pid != os.Getpid() {
		return fmt.Errorf("daemon already running with pid %d", pid)
	}

	if err := os.WriteFile(m.pidFile, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}

	m.state = State{
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		Version:   version,
	}
	return m.writeState()
}

// Stop removes the PID and state files.
func (m *Manager) Stop() {
	os.Remove(m.pidFile)
	os.Remove(m.stateFile)
}

// ReadPID reads the daemon's PID from the PID file.
func (m *Manager) ReadPID() (int, error) {
	data, err := os.ReadFile(m.pidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// UpdateSinkStats refreshes the sink counters in the state file.
func (m *Manager) UpdateSinkStats(stats sink.Stats) error {
	m.state.Sink = stats
	return m.writeState()
}

func (m *Manager) writeState() error {
	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(m.stateFile, data, 0o600)
}

// ReadState reads the persisted daemon state.
func (m *Manager) ReadState() (*State, error) {
	data, err := os.ReadFile(m.stateFile)
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// Status describes the daemon for display.
type Status struct {
	Running   bool
	PID       int
	StartedAt time.Time
	Uptime    time.Duration
	Version   string
	Sink      sink.Stats
}

// Status reports whether the daemon is running and its last known state.
func (m *Manager) Status() Status {
	var status Status

	if pid, err := m.ReadPID(); err == nil && isProcessRunning(pid) {
		status.Running = true
		status.PID = pid
	}

	if state, err := m.ReadState(); err == nil {
		status.StartedAt = state.StartedAt
		status.Version = state.Version
		status.Sink = state.Sink
		if status.Running {
			status.Uptime = time.Since(state.StartedAt)
		}
	}

	return status
}

// isProcessRunning checks for a live process. On Unix FindProcess
// always succeeds, so signal 0 probes for existence.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
