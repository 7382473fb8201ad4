package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is the sweep period. A timer fires within one period
// after its nominal expiry; that imprecision is the price of a scheduler with
// no per-timer wakeups.
const DefaultPollInterval = 5 * time.Second

// Scheduler drives the fixed-period expiry sweep. It holds no business
// state: each tick snapshots the due timers and hands them to the
// dispatcher one at a time, in ascending expiry order. Sequential dispatch
// within a tick bounds the number of in-flight language-model calls to one
// no matter how many timers expire together.
type Scheduler struct {
	registry   *Registry
	dispatcher *Dispatcher
	interval   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a Scheduler sweeping every interval. A non-positive
// interval falls back to DefaultPollInterval.
func NewScheduler(registry *Registry, dispatcher *Dispatcher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scheduler{
		registry:   registry,
		dispatcher: dispatcher,
		interval:   interval,
	}
}

// Start launches the sweep loop. Calling Start on a running scheduler is a
// no-op; a stopped scheduler can be started again. The loop exits when Stop
// is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	slog.Info("expiry scheduler started", "interval", s.interval)
}

// Stop halts future ticks and waits for any in-flight tick to finish.
// In-flight dispatches are allowed to complete, never cut off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("expiry scheduler stopped")
}

// TriggerNow runs one sweep immediately, outside the ticker cadence.
func (s *Scheduler) TriggerNow(ctx context.Context) {
	s.tick(ctx)
}

// tick dispatches every timer due at sweep time. Dispatch failures are
// already converted to failed results inside the dispatcher, so one bad
// action never aborts the remainder of the tick.
func (s *Scheduler) tick(ctx context.Context) {
	due := s.registry.due(time.Now())
	if len(due) == 0 {
		return
	}
	slog.Debug("sweep found due timers", "count", len(due))
	for _, t := range due {
		s.dispatcher.Dispatch(ctx, t)
	}
}
