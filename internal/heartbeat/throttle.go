package heartbeat

import (
	"time"
)

// Decision is the outcome of a throttle check.
type Decision int

const (
	// Skip suppresses the heartbeat (same entity, too recent).
	Skip Decision = iota
	// Send emits the heartbeat.
	Send
)

func (d Decision) String() string {
	if d == Send {
		return "send"
	}
	return "skip"
}

// sentHeartbeat is a heartbeat that was confirmed sent.
type sentHeartbeat struct {
	heartbeat Heartbeat
	sentAt    time.Time
}

// Throttle decides whether candidate heartbeats should be sent.
//
// The first heartbeat ever and any entity change always send; a repeat
// of the current entity sends only once minResend has elapsed since
// the last confirmed send. State advances only through RecordSent, so
// a failed send never extends the throttle window.
type Throttle struct {
	minResend time.Duration
	lastSent  *sentHeartbeat

	// now is swappable for tests.
	now func() time.Time
}

// NewThrottle creates a throttle with the given minimum resend
// interval for an unchanged entity.
func NewThrottle(minResend time.Duration) *Throttle {
	return &Throttle{
		minResend: minResend,
		now:       time.Now,
	}
}

// ShouldSend decides Send or Skip for a candidate entity.
func (t *Throttle) ShouldSend(entity Entity) Decision {
	if t.lastSent == nil {
		return Send
	}

	if t.lastSent.heartbeat.Entity != entity {
		return Send
	}

	if t.now().Sub(t.lastSent.sentAt) >= t.minResend {
		return Send
	}
	return Skip
}

// RecordSent remembers a heartbeat as sent. Call only after the sink
// confirmed the send succeeded.
func (t *Throttle) RecordSent(hb Heartbeat) {
	t.lastSent = &sentHeartbeat{heartbeat: hb, sentAt: t.now()}
}

// LastSent returns the last successfully sent heartbeat, used for
// periodic resends of the still-focused entity.
func (t *Throttle) LastSent() (Heartbeat, bool) {
	if t.lastSent == nil {
		return Heartbeat{}, false
	}
	return t.lastSent.heartbeat, true
}
