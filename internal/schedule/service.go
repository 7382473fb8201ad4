// Package schedule keeps standing schedules: definitions that fire
// repeatedly on a cron calendar, with no end count. Each fire creates an
// immediately due one-shot timer, so every execution flows through the
// same dispatch path as ordinary timers.
package schedule

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/coopco/tickbot/internal/timer"
)

// TimerCreator is the slice of the timer service the scheduler needs.
type TimerCreator interface {
	CreateTimer(spec timer.Spec) string
}

type Service struct {
	scheduler *robfigcron.Cron
	timers    TimerCreator
	storePath string
	entries   map[string]robfigcron.EntryID
	defs      map[string]Definition
	mu        sync.Mutex
	counter   int
}

func NewService(storePath string, timers TimerCreator) *Service {
	return &Service{
		scheduler: robfigcron.New(),
		timers:    timers,
		storePath: storePath,
		entries:   make(map[string]robfigcron.EntryID),
		defs:      make(map[string]Definition),
	}
}

// Start begins the cron scheduler.
func (s *Service) Start() {
	s.scheduler.Start()
}

// Stop stops the cron scheduler.
func (s *Service) Stop() {
	s.scheduler.Stop()
}

// Add registers a standing schedule. Returns the schedule ID.
func (s *Service) Add(name string, when When, actionSpec ActionSpec) (string, error) {
	cronExpr, err := toCronExpr(when)
	if err != nil {
		return "", fmt.Errorf("invalid schedule: %w", err)
	}
	action, err := actionSpec.toAction()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("sched_%d", s.counter)
	s.counter++

	def := Definition{
		ID:        id,
		Name:      name,
		When:      when,
		Action:    actionSpec,
		CreatedAt: time.Now(),
	}

	entryID, err := s.scheduler.AddFunc(cronExpr, func() {
		timerID := s.timers.CreateTimer(timer.Spec{
			Name:        name,
			Description: fmt.Sprintf("fired by schedule %s", id),
			Action:      action,
		})
		slog.Debug("schedule fired", "schedule", id, "timer", timerID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to register schedule: %w", err)
	}

	s.entries[id] = entryID
	s.defs[id] = def

	if err := s.saveToDisk(); err != nil {
		slog.Warn("failed to persist schedules", "error", err)
	}

	return id, nil
}

// Remove deletes a standing schedule by ID.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("schedule %q not found", id)
	}

	s.scheduler.Remove(entryID)
	delete(s.entries, id)
	delete(s.defs, id)

	if err := s.saveToDisk(); err != nil {
		slog.Warn("failed to persist schedules after removal", "error", err)
	}

	return nil
}

// List returns all registered schedules.
func (s *Service) List() []Definition {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		result = append(result, def)
	}
	return result
}

// LoadFromDisk loads persisted schedules and re-registers them.
func (s *Service) LoadFromDisk() error {
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schedule store: %w", err)
	}

	var st store
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to parse schedule store: %w", err)
	}

	for _, def := range st.Schedules {
		if _, err := s.Add(def.Name, def.When, def.Action); err != nil {
			slog.Warn("failed to restore schedule", "id", def.ID, "error", err)
		}
	}
	return nil
}

// saveToDisk persists current schedules to the JSON store. Caller must hold s.mu.
func (s *Service) saveToDisk() error {
	defs := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		defs = append(defs, def)
	}

	data, err := json.MarshalIndent(store{Schedules: defs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	return os.WriteFile(s.storePath, data, 0o644)
}

// toCronExpr converts a When to a robfig/cron expression string.
func toCronExpr(when When) (string, error) {
	switch when.Kind {
	case KindCron:
		return when.Expression, nil
	case KindEvery:
		d, err := time.ParseDuration(when.Expression)
		if err != nil {
			return "", fmt.Errorf("invalid duration %q: %w", when.Expression, err)
		}
		return fmt.Sprintf("@every %s", d), nil
	case KindAt:
		var h, m int
		if _, err := fmt.Sscanf(when.Expression, "%d:%d", &h, &m); err != nil {
			return "", fmt.Errorf("invalid time %q, expected HH:MM: %w", when.Expression, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return "", fmt.Errorf("time %q out of range", when.Expression)
		}
		return fmt.Sprintf("%d %d * * *", m, h), nil
	default:
		return "", fmt.Errorf("unknown schedule kind %q", when.Kind)
	}
}
