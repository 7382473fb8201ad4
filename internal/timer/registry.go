package timer

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry is the concurrent store of timers. All operations are safe under
// arbitrary concurrent callers; timers are copied on the way out so callers
// never share memory with the registry.
type Registry struct {
	mu     sync.RWMutex
	timers map[string]*Timer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*Timer)}
}

// Create registers a new timer from spec and returns a copy of it. Creation
// always succeeds: the expiry value is not validated, and a zero or negative
// delay simply makes the timer due on the next sweep.
func (r *Registry) Create(spec Spec) Timer {
	now := time.Now()
	t := &Timer{
		ID:            NewTimerID(),
		Name:          spec.Name,
		Description:   spec.Description,
		CreatedAt:     now,
		ExpiresAt:     spec.expiry(now),
		Status:        StatusActive,
		Action:        spec.Action,
		Recurring:     spec.Recurring,
		Interval:      spec.Interval,
		MaxExecutions: spec.MaxExecutions,
	}

	r.mu.Lock()
	r.timers[t.ID] = t
	r.mu.Unlock()

	return *t
}

// Get returns a copy of the timer with the given id.
func (r *Registry) Get(id string) (Timer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.timers[id]
	if !ok {
		return Timer{}, false
	}
	return *t, true
}

// ListActive returns all active timers ordered by ascending expiry. Paused,
// cancelled, and expired timers are excluded.
func (r *Registry) ListActive() []Timer {
	r.mu.RLock()
	result := make([]Timer, 0, len(r.timers))
	for _, t := range r.timers {
		if t.Status == StatusActive {
			result = append(result, *t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result
}

// ListByName returns all timers whose name matches (case-insensitive exact).
func (r *Registry) ListByName(name string) []Timer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Timer
	for _, t := range r.timers {
		if strings.EqualFold(t.Name, name) {
			result = append(result, *t)
		}
	}
	return result
}

// Cancel removes the timer from the registry. Returns false if the id is
// unknown (already fired or already cancelled); under racing cancels of the
// same id at most one caller sees true.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok {
		return false
	}
	t.Status = StatusCancelled
	delete(r.timers, id)
	return true
}

// Pause moves an active timer to paused without touching its expiry.
func (r *Registry) Pause(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok || t.Status != StatusActive {
		return false
	}
	t.Status = StatusPaused
	return true
}

// Resume reactivates a paused timer. The expiry is not recomputed: resuming
// an overdue timer makes it due on the next sweep.
func (r *Registry) Resume(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok || t.Status != StatusPaused {
		return false
	}
	t.Status = StatusActive
	return true
}

// Len returns the number of timers currently held, in any status.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.timers)
}

// due returns copies of all active timers whose expiry has passed, ordered
// by ascending expiry. The sweep dispatches from this snapshot, so creation
// and cancellation stay available throughout a tick.
func (r *Registry) due(now time.Time) []Timer {
	r.mu.RLock()
	var result []Timer
	for _, t := range r.timers {
		if t.Status == StatusActive && t.Overdue(now) {
			result = append(result, *t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(result[j].ExpiresAt)
	})
	return result
}

// recordExecution increments the timer's execution count and applies the
// post-dispatch transition in one step under the lock:
//
//	not recurring                  -> expired, removed
//	recurring, count < max         -> stays active, expiry advanced by Interval
//	recurring, count >= max        -> expired, removed
//
// Returns the new count and false if the timer vanished mid-dispatch (for
// example a concurrent cancel), in which case nothing is recorded.
func (r *Registry) recordExecution(id string, now time.Time) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[id]
	if !ok {
		return 0, false
	}

	t.ExecutionCount++
	count := t.ExecutionCount

	if t.Recurring && t.ExecutionCount < t.MaxExecutions {
		t.ExpiresAt = now.Add(t.Interval)
	} else {
		t.Status = StatusExpired
		delete(r.timers, id)
	}
	return count, true
}
