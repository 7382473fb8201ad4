package timer

import (
	"fmt"
	"time"
)

// Convenience constructors for the common timer shapes. These are pure
// composition over CreateTimer and add no core state; they also carry the
// input validation the core deliberately omits.

// DelayedLLMCall schedules a one-shot language-model prompt after delay.
func (s *Service) DelayedLLMCall(name string, delay time.Duration, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	return s.CreateTimer(Spec{Name: name, Delay: delay, Action: InvokeLLM(prompt)}), nil
}

// Reminder schedules a one-shot message after delay.
func (s *Service) Reminder(name string, delay time.Duration, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("reminder text must not be empty")
	}
	return s.CreateTimer(Spec{Name: name, Delay: delay, Action: ShowMessage(text)}), nil
}

// RecurringReminder schedules text every interval, capped at count firings.
func (s *Service) RecurringReminder(name string, interval time.Duration, count int, text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("reminder text must not be empty")
	}
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	if count <= 0 {
		return "", fmt.Errorf("count must be positive, got %d", count)
	}
	return s.CreateTimer(Spec{
		Name:          name,
		Delay:         interval,
		Action:        ShowMessage(text),
		Recurring:     true,
		Interval:      interval,
		MaxExecutions: count,
	}), nil
}

// EntertainmentBatch spreads n language-model prompts evenly across total,
// for "keep me company for the next hour" style requests. The first timer
// fires after one spacing step, the last at total.
func (s *Service) EntertainmentBatch(name string, total time.Duration, n int, prompt string) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", n)
	}
	if total <= 0 {
		return nil, fmt.Errorf("total duration must be positive, got %s", total)
	}
	step := total / time.Duration(n)
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, s.CreateTimer(Spec{
			Name:   fmt.Sprintf("%s %d/%d", name, i, n),
			Delay:  step * time.Duration(i),
			Action: InvokeLLM(prompt),
		}))
	}
	return ids, nil
}

// WorkflowStep is one stage of a guided multi-step workflow.
type WorkflowStep struct {
	Text  string
	Delay time.Duration // delay after the previous step
}

// WorkflowSequence schedules a chain of reminders, each offset from the one
// before it, for guided workflows ("preheat oven", "put the tray in", ...).
func (s *Service) WorkflowSequence(name string, steps []WorkflowStep) ([]string, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("workflow needs at least one step")
	}
	ids := make([]string, 0, len(steps))
	var offset time.Duration
	for i, step := range steps {
		if step.Text == "" {
			return nil, fmt.Errorf("step %d has no text", i+1)
		}
		if step.Delay < 0 {
			return nil, fmt.Errorf("step %d has a negative delay", i+1)
		}
		offset += step.Delay
		ids = append(ids, s.CreateTimer(Spec{
			Name:   fmt.Sprintf("%s step %d/%d", name, i+1, len(steps)),
			Delay:  offset,
			Action: ShowMessage(step.Text),
		}))
	}
	return ids, nil
}
