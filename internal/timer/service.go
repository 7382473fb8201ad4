package timer

import (
	"context"
	"time"
)

// Config holds Service construction options. Capabilities may be supplied
// here or attached later; everything is optional.
type Config struct {
	PollInterval  time.Duration
	LanguageModel LanguageModel
	ToolInvoker   ToolInvoker
	Display       Display
}

// Service is the caller-facing facade over the registry, dispatcher, and
// expiry scheduler. Construct one per process; there is no global state.
type Service struct {
	registry   *Registry
	dispatcher *Dispatcher
	scheduler  *Scheduler
	events     *events
}

// NewService wires a complete timer core from cfg.
func NewService(cfg Config) *Service {
	registry := NewRegistry()
	evs := newEvents()
	dispatcher := NewDispatcher(registry, evs)
	if cfg.LanguageModel != nil {
		_ = dispatcher.AttachLanguageModel(cfg.LanguageModel)
	}
	if cfg.ToolInvoker != nil {
		_ = dispatcher.AttachToolInvoker(cfg.ToolInvoker)
	}
	if cfg.Display != nil {
		_ = dispatcher.AttachDisplay(cfg.Display)
	}
	return &Service{
		registry:   registry,
		dispatcher: dispatcher,
		scheduler:  NewScheduler(registry, dispatcher, cfg.PollInterval),
		events:     evs,
	}
}

// Start begins the expiry sweep loop.
func (s *Service) Start(ctx context.Context) {
	s.scheduler.Start(ctx)
}

// Stop halts the sweep loop, letting any in-flight dispatch finish.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// CreateTimer registers a timer and returns its id.
func (s *Service) CreateTimer(spec Spec) string {
	return s.registry.Create(spec).ID
}

// CancelTimer removes a timer. False means the id was unknown.
func (s *Service) CancelTimer(id string) bool { return s.registry.Cancel(id) }

// PauseTimer parks an active timer without touching its expiry.
func (s *Service) PauseTimer(id string) bool { return s.registry.Pause(id) }

// ResumeTimer reactivates a paused timer; an overdue one fires on the next sweep.
func (s *Service) ResumeTimer(id string) bool { return s.registry.Resume(id) }

// GetTimer returns a copy of the timer with the given id.
func (s *Service) GetTimer(id string) (Timer, bool) { return s.registry.Get(id) }

// ListActiveTimers returns active timers ordered by ascending expiry.
func (s *Service) ListActiveTimers() []Timer { return s.registry.ListActive() }

// ListTimersByName returns timers matching name, case-insensitively.
func (s *Service) ListTimersByName(name string) []Timer { return s.registry.ListByName(name) }

// AttachLanguageModel wires the language-model capability (one-time).
func (s *Service) AttachLanguageModel(lm LanguageModel) error {
	return s.dispatcher.AttachLanguageModel(lm)
}

// AttachToolInvoker wires the tool-invocation capability (one-time).
func (s *Service) AttachToolInvoker(ti ToolInvoker) error {
	return s.dispatcher.AttachToolInvoker(ti)
}

// AttachDisplay wires the display capability (one-time).
func (s *Service) AttachDisplay(d Display) error {
	return s.dispatcher.AttachDisplay(d)
}

// SubscribeTimerExpired registers an observer for pre-execution expiry events.
func (s *Service) SubscribeTimerExpired(fn func(ExpiredEvent)) {
	s.events.subscribeExpired(fn)
}

// SubscribeActionCompleted registers an observer for dispatch outcomes.
func (s *Service) SubscribeActionCompleted(fn func(ActionResult)) {
	s.events.subscribeCompleted(fn)
}

// Sweep runs one sweep immediately. Useful for tests and for callers that
// want a just-created zero-delay timer handled without waiting a period.
func (s *Service) Sweep(ctx context.Context) {
	s.scheduler.TriggerNow(ctx)
}
