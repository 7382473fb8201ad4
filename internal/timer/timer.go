// Package timer implements tickbot's proactive action scheduler: a registry
// of delayed or recurring timers, a fixed-period expiry sweep, and a
// dispatcher that executes each due timer's action through injected
// capabilities (language model, tool invocation, display). Timers live only
// in memory; nothing survives a process restart.
package timer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status tracks a timer's lifecycle.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Timer is the schedulable entity. The registry owns every Timer; callers
// only ever receive copies, and all mutation happens through registry
// operations driven by the dispatcher or explicit cancel/pause/resume calls.
type Timer struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Status      Status
	Action      Action

	Recurring     bool
	Interval      time.Duration // reschedule step for recurring timers
	MaxExecutions int           // recurring cap; non-recurring timers always run once

	ExecutionCount int // incremented on every dispatch, failed ones included
}

// Spec describes a timer to create. Exactly one of Delay and At should be
// set; when At is non-zero it wins. A zero or negative delay is accepted and
// makes the timer due on the next sweep.
type Spec struct {
	Name        string
	Description string
	Delay       time.Duration
	At          time.Time
	Action      Action

	Recurring     bool
	Interval      time.Duration
	MaxExecutions int
}

// expiry resolves the spec's target time relative to now.
func (s Spec) expiry(now time.Time) time.Time {
	if !s.At.IsZero() {
		return s.At
	}
	return now.Add(s.Delay)
}

// NewTimerID generates a unique timer identifier with a "tmr_" prefix.
func NewTimerID() string {
	return fmt.Sprintf("tmr_%s", uuid.NewString())
}

// Overdue reports whether the timer's expiry has passed at the given instant.
func (t *Timer) Overdue(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
