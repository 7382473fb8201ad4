package timer

import (
	"sync"
	"time"
)

// ExpiredEvent is published once per dispatch, before the action executes.
// Timer is a snapshot taken at sweep time.
type ExpiredEvent struct {
	Timer     Timer
	ExpiredAt time.Time
}

// events fans out the two observable streams to zero or more subscribers.
// Delivery is synchronous on the dispatch path: a slow subscriber delays the
// next timer in the same tick. Tick volume is low, so that tradeoff is fine.
type events struct {
	mu        sync.RWMutex
	expired   []func(ExpiredEvent)
	completed []func(ActionResult)
}

func newEvents() *events {
	return &events{}
}

func (e *events) subscribeExpired(fn func(ExpiredEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, fn)
}

func (e *events) subscribeCompleted(fn func(ActionResult)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, fn)
}

func (e *events) publishExpired(ev ExpiredEvent) {
	e.mu.RLock()
	subs := e.expired
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (e *events) publishCompleted(result ActionResult) {
	e.mu.RLock()
	subs := e.completed
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(result)
	}
}
