package timer

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCreateAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	const n = 100
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created := r.Create(Spec{Name: fmt.Sprintf("t%d", i), Delay: time.Minute, Action: PlaySound()})
			ids <- created.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate timer id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d ids, got %d", n, len(seen))
	}
}

func TestCreateAcceptsZeroAndNegativeDelays(t *testing.T) {
	r := NewRegistry()

	for _, delay := range []time.Duration{0, -time.Minute} {
		created := r.Create(Spec{Name: "immediate", Delay: delay, Action: PlaySound()})
		if created.Status != StatusActive {
			t.Errorf("delay %v: status = %s, want active", delay, created.Status)
		}
		if !created.Overdue(time.Now()) {
			t.Errorf("delay %v: timer should be immediately overdue", delay)
		}
	}
}

func TestListActiveOrderingAndExclusion(t *testing.T) {
	r := NewRegistry()

	late := r.Create(Spec{Name: "late", Delay: 3 * time.Hour, Action: PlaySound()})
	early := r.Create(Spec{Name: "early", Delay: time.Hour, Action: PlaySound()})
	mid := r.Create(Spec{Name: "mid", Delay: 2 * time.Hour, Action: PlaySound()})
	paused := r.Create(Spec{Name: "paused", Delay: time.Minute, Action: PlaySound()})
	cancelled := r.Create(Spec{Name: "cancelled", Delay: time.Minute, Action: PlaySound()})

	r.Pause(paused.ID)
	r.Cancel(cancelled.ID)

	active := r.ListActive()
	if len(active) != 3 {
		t.Fatalf("expected 3 active timers, got %d", len(active))
	}
	wantOrder := []string{early.ID, mid.ID, late.ID}
	for i, want := range wantOrder {
		if active[i].ID != want {
			t.Errorf("position %d: got %q (%s), want %q", i, active[i].ID, active[i].Name, want)
		}
	}
}

func TestListByNameCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Create(Spec{Name: "Tea Timer", Delay: time.Minute, Action: PlaySound()})
	r.Create(Spec{Name: "tea timer", Delay: time.Minute, Action: PlaySound()})
	r.Create(Spec{Name: "coffee", Delay: time.Minute, Action: PlaySound()})

	if got := r.ListByName("TEA TIMER"); len(got) != 2 {
		t.Errorf("ListByName(TEA TIMER) = %d timers, want 2", len(got))
	}
	if got := r.ListByName("tea"); len(got) != 0 {
		t.Errorf("partial name matched %d timers, want 0", len(got))
	}
}

func TestCancelIsIdempotentSafe(t *testing.T) {
	r := NewRegistry()
	created := r.Create(Spec{Name: "doomed", Delay: time.Minute, Action: PlaySound()})

	if !r.Cancel(created.ID) {
		t.Fatal("first cancel should return true")
	}
	if r.Cancel(created.ID) {
		t.Error("second cancel should return false")
	}
	if _, ok := r.Get(created.ID); ok {
		t.Error("cancelled timer still in registry")
	}
	if r.Cancel("tmr_nope") {
		t.Error("cancel of unknown id should return false")
	}
}

func TestConcurrentCancelHasOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		r := NewRegistry()
		created := r.Create(Spec{Name: "contested", Delay: time.Minute, Action: PlaySound()})

		const racers = 8
		wins := make(chan bool, racers)
		var wg sync.WaitGroup
		for j := 0; j < racers; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				wins <- r.Cancel(created.ID)
			}()
		}
		wg.Wait()
		close(wins)

		var winners int
		for won := range wins {
			if won {
				winners++
			}
		}
		if winners != 1 {
			t.Fatalf("round %d: %d cancels returned true, want exactly 1", i, winners)
		}
	}
}

func TestPauseResume(t *testing.T) {
	r := NewRegistry()
	created := r.Create(Spec{Name: "nap", Delay: time.Minute, Action: PlaySound()})

	if !r.Pause(created.ID) {
		t.Fatal("pause of active timer should succeed")
	}
	if r.Pause(created.ID) {
		t.Error("pause of paused timer should return false")
	}
	if got := r.ListActive(); len(got) != 0 {
		t.Errorf("paused timer still listed active")
	}

	paused, ok := r.Get(created.ID)
	if !ok || paused.Status != StatusPaused {
		t.Fatalf("Get after pause = %+v, %v", paused, ok)
	}
	if !paused.ExpiresAt.Equal(created.ExpiresAt) {
		t.Error("pause must not touch expiry")
	}

	if !r.Resume(created.ID) {
		t.Fatal("resume of paused timer should succeed")
	}
	if r.Resume(created.ID) {
		t.Error("resume of active timer should return false")
	}
	if got := r.ListActive(); len(got) != 1 {
		t.Errorf("resumed timer missing from active list")
	}
}

func TestDueSnapshot(t *testing.T) {
	r := NewRegistry()
	overdue := r.Create(Spec{Name: "overdue", Delay: -time.Second, Action: PlaySound()})
	r.Create(Spec{Name: "future", Delay: time.Hour, Action: PlaySound()})
	parked := r.Create(Spec{Name: "parked", Delay: -time.Second, Action: PlaySound()})
	r.Pause(parked.ID)

	due := r.due(time.Now())
	if len(due) != 1 || due[0].ID != overdue.ID {
		t.Fatalf("due = %+v, want only %q", due, overdue.ID)
	}
}

func TestRecordExecutionTransitions(t *testing.T) {
	now := time.Now()

	t.Run("non-recurring removed after first dispatch", func(t *testing.T) {
		r := NewRegistry()
		created := r.Create(Spec{Name: "once", Delay: 0, Action: PlaySound()})

		count, ok := r.recordExecution(created.ID, now)
		if !ok || count != 1 {
			t.Fatalf("recordExecution = %d, %v, want 1, true", count, ok)
		}
		if _, ok := r.Get(created.ID); ok {
			t.Error("non-recurring timer should be removed after dispatch")
		}
	})

	t.Run("recurring under cap rescheduled", func(t *testing.T) {
		r := NewRegistry()
		created := r.Create(Spec{
			Name: "twice", Delay: 0, Action: PlaySound(),
			Recurring: true, Interval: time.Minute, MaxExecutions: 2,
		})

		if count, ok := r.recordExecution(created.ID, now); !ok || count != 1 {
			t.Fatalf("first recordExecution = %d, %v", count, ok)
		}
		after, ok := r.Get(created.ID)
		if !ok {
			t.Fatal("recurring timer under cap should stay registered")
		}
		if want := now.Add(time.Minute); !after.ExpiresAt.Equal(want) {
			t.Errorf("expiry = %v, want %v", after.ExpiresAt, want)
		}

		if count, ok := r.recordExecution(created.ID, now); !ok || count != 2 {
			t.Fatalf("second recordExecution = %d, %v", count, ok)
		}
		if _, ok := r.Get(created.ID); ok {
			t.Error("recurring timer at cap should be removed")
		}
	})

	t.Run("vanished timer records nothing", func(t *testing.T) {
		r := NewRegistry()
		if _, ok := r.recordExecution("tmr_gone", now); ok {
			t.Error("recordExecution on unknown id should report false")
		}
	})
}
