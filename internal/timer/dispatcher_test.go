package timer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeDisplay records everything shown to it.
type fakeDisplay struct {
	mu    sync.Mutex
	shown []string
	err   error
}

func (f *fakeDisplay) Show(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, text)
	return nil
}

func (f *fakeDisplay) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.shown...)
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	panics  bool
}

func (f *fakeLLM) Invoke(_ context.Context, prompt string) (string, error) {
	if f.panics {
		panic("model exploded")
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.reply, f.err
}

type fakeTools struct {
	mu    sync.Mutex
	calls []string
	reply string
	err   error
}

func (f *fakeTools) Invoke(_ context.Context, name string, params map[string]any) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	return f.reply, f.err
}

func newTestDispatcher(lm LanguageModel, ti ToolInvoker, disp Display) (*Registry, *Dispatcher, *events) {
	r := NewRegistry()
	evs := newEvents()
	d := NewDispatcher(r, evs)
	if lm != nil {
		_ = d.AttachLanguageModel(lm)
	}
	if ti != nil {
		_ = d.AttachToolInvoker(ti)
	}
	if disp != nil {
		_ = d.AttachDisplay(disp)
	}
	return r, d, evs
}

func TestDispatchShowMessage(t *testing.T) {
	disp := &fakeDisplay{}
	r, d, _ := newTestDispatcher(nil, nil, disp)
	created := r.Create(Spec{Name: "hi", Delay: 0, Action: ShowMessage("hi there")})

	result := d.Dispatch(context.Background(), created)
	if !result.Success {
		t.Fatalf("dispatch failed: %+v", result)
	}
	if got := disp.texts(); len(got) != 1 || got[0] != "hi there" {
		t.Errorf("display got %v, want [hi there]", got)
	}
	if result.ExecutionCount != 1 {
		t.Errorf("execution count = %d, want 1", result.ExecutionCount)
	}
	if _, ok := r.Get(created.ID); ok {
		t.Error("non-recurring timer should be gone after dispatch")
	}
}

func TestDispatchInvokeLLMForwardsResponse(t *testing.T) {
	llm := &fakeLLM{reply: "the answer"}
	disp := &fakeDisplay{}
	r, d, _ := newTestDispatcher(llm, nil, disp)
	created := r.Create(Spec{Name: "ask", Delay: 0, Action: InvokeLLM("what is up")})

	result := d.Dispatch(context.Background(), created)
	if !result.Success || result.ResponseText != "the answer" {
		t.Fatalf("result = %+v", result)
	}
	if got := disp.texts(); len(got) != 1 || got[0] != "the answer" {
		t.Errorf("display got %v, want the model reply", got)
	}
}

func TestDispatchSmartTaskFramesPrompt(t *testing.T) {
	llm := &fakeLLM{reply: "done"}
	r, d, _ := newTestDispatcher(llm, nil, nil)
	asked := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	created := r.Create(Spec{Name: "smart", Delay: 0, Action: SmartTask("order pizza", asked)})

	result := d.Dispatch(context.Background(), created)
	if !result.Success {
		t.Fatalf("dispatch failed: %+v", result)
	}
	if len(llm.prompts) != 1 {
		t.Fatalf("prompts = %v", llm.prompts)
	}
	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "order pizza") || !strings.Contains(prompt, "2026-03-01T09:30:00Z") {
		t.Errorf("prompt missing original request or timestamp: %q", prompt)
	}
}

func TestDispatchExecuteTool(t *testing.T) {
	tools := &fakeTools{reply: "42"}
	disp := &fakeDisplay{}
	r, d, _ := newTestDispatcher(nil, tools, disp)
	created := r.Create(Spec{Name: "calc", Delay: 0, Action: ExecuteTool("calculator", map[string]any{"expr": "6*7"})})

	result := d.Dispatch(context.Background(), created)
	if !result.Success || result.ResponseText != "42" {
		t.Fatalf("result = %+v", result)
	}
	if len(tools.calls) != 1 || tools.calls[0] != "calculator" {
		t.Errorf("tool calls = %v", tools.calls)
	}
	if got := disp.texts(); len(got) != 1 || got[0] != "42" {
		t.Errorf("display got %v, want tool output", got)
	}
}

func TestDispatchPlaySoundSubstitutesNotification(t *testing.T) {
	disp := &fakeDisplay{}
	r, d, _ := newTestDispatcher(nil, nil, disp)
	created := r.Create(Spec{Name: "chime", Delay: 0, Action: PlaySound()})

	result := d.Dispatch(context.Background(), created)
	if !result.Success {
		t.Fatalf("dispatch failed: %+v", result)
	}
	got := disp.texts()
	if len(got) != 1 || !strings.Contains(got[0], "chime") {
		t.Errorf("display got %v, want a notification naming the timer", got)
	}
}

func TestDispatchMissingCapabilities(t *testing.T) {
	tests := []struct {
		name   string
		action Action
	}{
		{"llm", InvokeLLM("hello")},
		{"smart task", SmartTask("hello", time.Now())},
		{"display", ShowMessage("hello")},
		{"tool", ExecuteTool("shell", nil)},
		{"sound", PlaySound()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, d, _ := newTestDispatcher(nil, nil, nil)
			created := r.Create(Spec{Name: tc.name, Delay: 0, Action: tc.action})

			result := d.Dispatch(context.Background(), created)
			if result.Success {
				t.Fatal("dispatch with no capabilities should fail")
			}
			if result.Err == nil || result.Message == "" {
				t.Errorf("failed result should carry an explanation, got %+v", result)
			}
			// The timer still transitions per the normal table.
			if _, ok := r.Get(created.ID); ok {
				t.Error("timer should be removed despite the failure")
			}
		})
	}
}

func TestDispatchFailureStillReschedulesRecurring(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("model down")}
	r, d, _ := newTestDispatcher(llm, nil, nil)
	created := r.Create(Spec{
		Name: "flaky", Delay: 0, Action: InvokeLLM("hi"),
		Recurring: true, Interval: time.Minute, MaxExecutions: 3,
	})

	result := d.Dispatch(context.Background(), created)
	if result.Success {
		t.Fatal("dispatch should fail when the model errors")
	}
	after, ok := r.Get(created.ID)
	if !ok {
		t.Fatal("failed recurring timer should still be rescheduled")
	}
	if after.ExecutionCount != 1 {
		t.Errorf("execution count = %d, want 1 (failed dispatches count)", after.ExecutionCount)
	}
}

func TestDispatchPanicIsContained(t *testing.T) {
	r, d, _ := newTestDispatcher(&fakeLLM{panics: true}, nil, nil)
	created := r.Create(Spec{Name: "boom", Delay: 0, Action: InvokeLLM("hi")})

	result := d.Dispatch(context.Background(), created)
	if result.Success {
		t.Fatal("panicking capability should produce a failed result")
	}
	if !strings.Contains(result.Message, "panicked") {
		t.Errorf("message = %q, want panic explanation", result.Message)
	}
}

func TestDispatchEventOrderAndPayloads(t *testing.T) {
	disp := &fakeDisplay{}
	r, d, evs := newTestDispatcher(nil, nil, disp)

	var order []string
	evs.subscribeExpired(func(ev ExpiredEvent) {
		order = append(order, "expired:"+ev.Timer.Name)
	})
	evs.subscribeCompleted(func(res ActionResult) {
		order = append(order, fmt.Sprintf("completed:%s:%d", res.TimerName, res.ExecutionCount))
	})

	created := r.Create(Spec{Name: "observed", Delay: 0, Action: ShowMessage("x")})
	d.Dispatch(context.Background(), created)

	want := []string{"expired:observed", "completed:observed:1"}
	if len(order) != len(want) {
		t.Fatalf("events = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestDispatchCreatesFollowUps(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("always down")}
	r, d, _ := newTestDispatcher(llm, nil, nil)

	action := InvokeLLM("hi").WithFollowUps(
		FollowUp{Name: "chaser", Delay: time.Hour, Action: ShowMessage("follow through")},
	)
	created := r.Create(Spec{Name: "parent", Delay: 0, Action: action})

	// Parent fails, follow-ups are created anyway.
	if result := d.Dispatch(context.Background(), created); result.Success {
		t.Fatal("parent dispatch should fail")
	}

	followUps := r.ListByName("chaser")
	if len(followUps) != 1 {
		t.Fatalf("expected 1 follow-up timer, got %d", len(followUps))
	}
	if followUps[0].Action.Kind != ActionShowMessage {
		t.Errorf("follow-up action kind = %s", followUps[0].Action.Kind)
	}
}

func TestAttachIsOneTime(t *testing.T) {
	_, d, _ := newTestDispatcher(nil, nil, nil)

	if err := d.AttachDisplay(&fakeDisplay{}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if err := d.AttachDisplay(&fakeDisplay{}); err == nil {
		t.Error("second attach should be rejected")
	}
	if err := d.AttachLanguageModel(&fakeLLM{}); err != nil {
		t.Fatalf("attach llm: %v", err)
	}
	if err := d.AttachLanguageModel(&fakeLLM{}); err == nil {
		t.Error("second llm attach should be rejected")
	}
}
