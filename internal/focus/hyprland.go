package focus

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"wakafocusd/internal/logging"
)

// Environment variables the socket path is derived from.
const (
	envRuntimeDir        = "XDG_RUNTIME_DIR"
	envInstanceSignature = "HYPRLAND_INSTANCE_SIGNATURE"
)

// Wire event names on the socket2 stream.
const (
	eventActiveWindow   = "activewindow"
	eventActiveWindowV2 = "activewindowv2"
)

// SocketPath resolves the path to Hyprland's socket2.
func SocketPath() (string, error) {
	runtimeDir := os.Getenv(envRuntimeDir)
	if runtimeDir == "" {
		return "", envError(envRuntimeDir)
	}

	signature := os.Getenv(envInstanceSignature)
	if signature == "" {
		return "", envError(envInstanceSignature)
	}

	path := filepath.Join(runtimeDir, "hypr", signature, ".socket2.sock")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSocketNotFound, path)
	}

	return path, nil
}

// Diagnostics describes the Hyprland environment for startup failure
// output and the diagnose command.
func Diagnostics() []string {
	var diags []string

	for _, name := range []string{envRuntimeDir, envInstanceSignature} {
		if v := os.Getenv(name); v != "" {
			diags = append(diags, fmt.Sprintf("%s=%s", name, v))
		} else {
			diags = append(diags, fmt.Sprintf("%s: NOT SET", name))
		}
	}

	path, err := SocketPath()
	if err != nil {
		diags = append(diags, fmt.Sprintf("socket2 path: %v", err))
		return diags
	}

	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		diags = append(diags, fmt.Sprintf("socket2 path: %s (stat failed: %v)", path, err))
	} else if stat.Mode&unix.S_IFMT == unix.S_IFSOCK {
		diags = append(diags, fmt.Sprintf("socket2 path: %s (unix socket)", path))
	} else {
		diags = append(diags, fmt.Sprintf("socket2 path: %s (exists but is not a socket)", path))
	}

	return diags
}

// correlator merges activewindow and activewindowv2 records into
// normalized events. One correlator lives for the duration of a single
// connection; address correlation does not survive a reconnect.
type correlator struct {
	address string
}

// apply processes one wire record and reports whether it produced an
// event. An activewindow record emits immediately using whatever
// address is currently cached, possibly none or stale; the matching
// activewindowv2 record may arrive later and only feeds future
// emissions. An empty class suppresses emission (focus left all
// windows, e.g. an empty workspace).
func (c *correlator) apply(name, payload string) (Event, bool) {
	switch name {
	case eventActiveWindow:
		class, title, _ := strings.Cut(payload, ",")
		if class == "" {
			return Event{}, false
		}
		return Event{AppClass: class, Title: title, WindowID: c.address}, true

	case eventActiveWindowV2:
		c.address = payload
		return Event{}, false

	default:
		return Event{}, false
	}
}

// parseLine splits a wire line of shape NAME>>PAYLOAD. Lines without
// the separator are protocol noise, not errors.
func parseLine(line string) (name, payload string, ok bool) {
	line = strings.TrimRight(line, "\n")
	return strings.Cut(line, ">>")
}

// Source streams focus events from the Hyprland socket2 event socket.
type Source struct {
	log     *logging.Logger
	backoff *backoff

	// dial is swappable for tests.
	dial func(ctx context.Context, path string) (net.Conn, error)
}

// NewSource creates a Hyprland focus event source.
func NewSource(log *logging.Logger) *Source {
	return &Source{
		log:     log.WithComponent("focus"),
		backoff: newBackoff(),
		dial: func(ctx context.Context, path string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		},
	}
}

// Stream connects to the event socket and sends correlated focus
// events on the channel, in the order they were produced, until ctx is
// cancelled. Transport failures are absorbed: the connection is torn
// down and re-established with exponential backoff starting at 250ms
// and capped at 5s, retried indefinitely. The backoff resets after a
// successful connect. Malformed lines never trigger a reconnect.
func (s *Source) Stream(ctx context.Context, events chan<- Event) error {
	for {
		err := s.connectAndStream(ctx, events)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.backoff.Next()
		s.log.Warn("socket2 connection error, retrying",
			"error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// connectAndStream connects once and reads until the transport fails
// or ctx is cancelled. A fresh correlator is created per connection.
func (s *Source) connectAndStream(ctx context.Context, events chan<- Event) error {
	path, err := SocketPath()
	if err != nil {
		return err
	}

	conn, err := s.dial(ctx, path)
	if err != nil {
		return fmt.Errorf("connect socket2: %w", err)
	}
	defer conn.Close()

	// Unblock the read when ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	s.log.Info("connected to socket2", "path", path)
	s.backoff.Reset()

	state := correlator{}
	scanner := bufio.NewScanner(conn)

	for scanner.Scan() {
		name, payload, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}

		event, emit := state.apply(name, payload)
		if !emit {
			continue
		}

		s.log.Debug("focus changed",
			"class", event.AppClass, "title", event.Title, "window_id", event.WindowID)

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read socket2: %w", err)
	}
	return io.EOF
}
