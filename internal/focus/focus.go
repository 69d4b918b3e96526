// Package focus detects which desktop application currently holds
// input focus.
//
// The Hyprland backend connects to the compositor's socket2 event
// stream, correlates the activewindow and activewindowv2 wire records
// into normalized events, and reconnects with capped exponential
// backoff when the transport fails.
package focus

import (
	"errors"
	"fmt"
	"time"
)

// Event is a normalized focus change.
type Event struct {
	// AppClass is the application class/app_id, the primary identifier
	// for the app. Empty means no window is focused.
	AppClass string

	// Title is the window title, if any. May contain sensitive info.
	Title string

	// WindowID is the compositor's window address, if known.
	WindowID string
}

// Empty reports whether the event represents the no-focus state.
func (e Event) Empty() bool {
	return e.AppClass == ""
}

// Sentinel errors for startup failures. Both are fatal: without the
// environment or the socket there is nothing to reconnect to.
var (
	// ErrEnvNotSet indicates a required environment variable is absent.
	ErrEnvNotSet = errors.New("required environment variable not set")

	// ErrSocketNotFound indicates the resolved socket path does not exist.
	ErrSocketNotFound = errors.New("event socket not found")
)

// Reconnect backoff bounds.
const (
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// backoff produces the capped exponential reconnect delay sequence:
// 250ms, 500ms, 1s, 2s, 4s, 5s, 5s, ... Reset returns it to the start
// after a successful connection.
type backoff struct {
	next time.Duration
}

func newBackoff() *backoff {
	return &backoff{next: initialBackoff}
}

// Next returns the current delay and advances the sequence.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next = min(b.next*2, maxBackoff)
	return d
}

// Reset restarts the sequence at the initial delay.
func (b *backoff) Reset() {
	b.next = initialBackoff
}

// envError wraps ErrEnvNotSet with the variable name.
func envError(name string) error {
	return fmt.Errorf("%w: %s", ErrEnvNotSet, name)
}
