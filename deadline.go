package tsaotun

import "time"

// DefaultInactivityTimeout is how long a stream may stay silent before it is abandoned.
const DefaultInactivityTimeout = 600 * time.Second

// Deadline is an inactivity deadline: it expires a fixed duration after
// creation or after the most recent Reset.
type Deadline struct {
	duration time.Duration
	expiry   time.Time
	now      func() time.Time
}

// NewDeadline returns a deadline expiring d from now. A non-positive d
// selects DefaultInactivityTimeout.
func NewDeadline(d time.Duration) *Deadline {
	if d <= 0 {
		d = DefaultInactivityTimeout
	}

	dl := &Deadline{duration: d, now: time.Now}
	dl.Reset()

	return dl
}

// Reset pushes the expiry to now plus the deadline's duration.
func (d *Deadline) Reset() {
	d.expiry = d.now().Add(d.duration)
}

// Expired reports whether the current time is past the expiry.
func (d *Deadline) Expired() bool {
	return d.now().After(d.expiry)
}

// Remaining returns the time left until expiry, or zero once it is reached.
func (d *Deadline) Remaining() time.Duration {
	return max(d.expiry.Sub(d.now()), 0)
}

// Expiry returns the current expiry instant.
func (d *Deadline) Expiry() time.Time {
	return d.expiry
}

// Duration returns the fixed inactivity window.
func (d *Deadline) Duration() time.Duration {
	return d.duration
}
