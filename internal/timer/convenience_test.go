package timer

import (
	"testing"
	"time"
)

func TestReminderValidation(t *testing.T) {
	svc := NewService(Config{})

	if _, err := svc.Reminder("r", time.Minute, ""); err == nil {
		t.Error("empty reminder text should be rejected")
	}

	id, err := svc.Reminder("tea", 10*time.Minute, "tea is ready")
	if err != nil {
		t.Fatalf("Reminder: %v", err)
	}
	got, ok := svc.GetTimer(id)
	if !ok {
		t.Fatal("reminder not registered")
	}
	if got.Action.Kind != ActionShowMessage || got.Action.Text != "tea is ready" {
		t.Errorf("action = %+v", got.Action)
	}
}

func TestRecurringReminderValidation(t *testing.T) {
	svc := NewService(Config{})

	tests := []struct {
		name     string
		interval time.Duration
		count    int
		text     string
		wantErr  bool
	}{
		{"valid", time.Minute, 3, "stretch", false},
		{"zero interval", 0, 3, "stretch", true},
		{"zero count", time.Minute, 0, "stretch", true},
		{"empty text", time.Minute, 3, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := svc.RecurringReminder(tc.name, tc.interval, tc.count, tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("RecurringReminder: %v", err)
			}
			got, _ := svc.GetTimer(id)
			if !got.Recurring || got.MaxExecutions != tc.count || got.Interval != tc.interval {
				t.Errorf("timer = %+v", got)
			}
		})
	}
}

func TestDelayedLLMCall(t *testing.T) {
	svc := NewService(Config{})

	if _, err := svc.DelayedLLMCall("x", time.Minute, ""); err == nil {
		t.Error("empty prompt should be rejected")
	}
	id, err := svc.DelayedLLMCall("muse", time.Minute, "say something nice")
	if err != nil {
		t.Fatalf("DelayedLLMCall: %v", err)
	}
	got, _ := svc.GetTimer(id)
	if got.Action.Kind != ActionInvokeLLM {
		t.Errorf("action kind = %s", got.Action.Kind)
	}
}

func TestEntertainmentBatchSpreadsEvenly(t *testing.T) {
	svc := NewService(Config{})

	ids, err := svc.EntertainmentBatch("entertain", time.Hour, 4, "tell me a joke")
	if err != nil {
		t.Fatalf("EntertainmentBatch: %v", err)
	}
	if len(ids) != 4 {
		t.Fatalf("got %d timers, want 4", len(ids))
	}

	active := svc.ListActiveTimers()
	if len(active) != 4 {
		t.Fatalf("active = %d, want 4", len(active))
	}
	// Ascending expiry; consecutive gaps of total/n.
	for i := 1; i < len(active); i++ {
		gap := active[i].ExpiresAt.Sub(active[i-1].ExpiresAt)
		if gap < 14*time.Minute || gap > 16*time.Minute {
			t.Errorf("gap %d = %s, want ~15m", i, gap)
		}
	}

	if _, err := svc.EntertainmentBatch("bad", time.Hour, 0, "p"); err == nil {
		t.Error("zero batch size should be rejected")
	}
	if _, err := svc.EntertainmentBatch("bad", 0, 3, "p"); err == nil {
		t.Error("zero duration should be rejected")
	}
}

func TestWorkflowSequenceAccumulatesDelays(t *testing.T) {
	svc := NewService(Config{})

	ids, err := svc.WorkflowSequence("bake", []WorkflowStep{
		{Text: "preheat the oven", Delay: 0},
		{Text: "put the tray in", Delay: 10 * time.Minute},
		{Text: "take it out", Delay: 25 * time.Minute},
	})
	if err != nil {
		t.Fatalf("WorkflowSequence: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("got %d steps, want 3", len(ids))
	}

	first, _ := svc.GetTimer(ids[0])
	last, _ := svc.GetTimer(ids[2])
	total := last.ExpiresAt.Sub(first.ExpiresAt)
	if total < 34*time.Minute || total > 36*time.Minute {
		t.Errorf("span between first and last step = %s, want ~35m", total)
	}

	if _, err := svc.WorkflowSequence("empty", nil); err == nil {
		t.Error("empty workflow should be rejected")
	}
	if _, err := svc.WorkflowSequence("bad", []WorkflowStep{{Text: "", Delay: time.Minute}}); err == nil {
		t.Error("step without text should be rejected")
	}
	if _, err := svc.WorkflowSequence("bad", []WorkflowStep{{Text: "x", Delay: -time.Minute}}); err == nil {
		t.Error("negative step delay should be rejected")
	}
}
