package timer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher executes one due timer at a time: it publishes the expiry
// event, runs the action through the attached capabilities, applies the
// recurring/removal policy, publishes the outcome, and creates any
// follow-up timers. Every failure is converted into a failed ActionResult
// at this boundary; nothing escapes to abort a sweep.
type Dispatcher struct {
	registry *Registry
	events   *events

	mu      sync.RWMutex
	llm     LanguageModel
	tools   ToolInvoker
	display Display
}

// NewDispatcher creates a Dispatcher over the given registry. Capabilities
// are attached separately; all of them are optional.
func NewDispatcher(registry *Registry, events *events) *Dispatcher {
	return &Dispatcher{registry: registry, events: events}
}

// AttachLanguageModel wires the language-model capability. Attachment is a
// one-time contract: a second attach is rejected.
func (d *Dispatcher) AttachLanguageModel(lm LanguageModel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.llm != nil {
		return fmt.Errorf("language model capability already attached")
	}
	d.llm = lm
	return nil
}

// AttachToolInvoker wires the tool-invocation capability.
func (d *Dispatcher) AttachToolInvoker(ti ToolInvoker) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tools != nil {
		return fmt.Errorf("tool invoker capability already attached")
	}
	d.tools = ti
	return nil
}

// AttachDisplay wires the display capability. Late binding is expected: the
// sink is often only known once a channel or UI comes up.
func (d *Dispatcher) AttachDisplay(disp Display) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.display != nil {
		return fmt.Errorf("display capability already attached")
	}
	d.display = disp
	return nil
}

func (d *Dispatcher) capabilities() (LanguageModel, ToolInvoker, Display) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.llm, d.tools, d.display
}

// Dispatch runs one execution attempt for a due timer snapshot and returns
// the outcome. Event order: TimerExpired, execution, registry transition,
// ActionCompleted, follow-up creation. Follow-ups are created whether or not
// the action succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, t Timer) ActionResult {
	d.events.publishExpired(ExpiredEvent{Timer: t, ExpiredAt: time.Now()})

	result := d.execute(ctx, t)

	count, ok := d.registry.recordExecution(t.ID, time.Now())
	if !ok {
		// Cancelled while executing: the in-flight dispatch completes, no
		// future occurrence will happen.
		count = t.ExecutionCount + 1
	}
	result.TimerID = t.ID
	result.TimerName = t.Name
	result.ExecutionCount = count

	if result.Success {
		slog.Info("timer dispatched", "id", t.ID, "name", t.Name, "kind", t.Action.Kind, "execution", count)
	} else {
		slog.Warn("timer dispatch failed", "id", t.ID, "name", t.Name, "kind", t.Action.Kind, "err", result.Err)
	}

	d.events.publishCompleted(result)

	for _, fu := range t.Action.FollowUps {
		created := d.registry.Create(Spec{
			Name:   fu.Name,
			Delay:  fu.Delay,
			Action: fu.Action,
		})
		slog.Debug("follow-up timer created", "parent", t.ID, "id", created.ID, "name", created.Name)
	}

	return result
}

// execute runs the action by kind. A panicking capability is caught here and
// converted into a failed result so one bad handler cannot take down a sweep.
func (d *Dispatcher) execute(ctx context.Context, t Timer) (result ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = failure(fmt.Errorf("action panicked: %v", r), "action %q panicked", t.Name)
		}
	}()

	llm, tools, display := d.capabilities()

	switch t.Action.Kind {
	case ActionInvokeLLM:
		return d.invokeLLM(ctx, llm, display, t.Action.Prompt)

	case ActionShowMessage:
		if display == nil {
			return failure(nil, "no display capability attached to show %q", t.Action.Text)
		}
		if err := display.Show(ctx, t.Action.Text); err != nil {
			return failure(err, "display failed")
		}
		return success("message shown")

	case ActionExecuteTool:
		if tools == nil {
			return failure(nil, "no tool capability attached to run %q", t.Action.ToolName)
		}
		out, err := tools.Invoke(ctx, t.Action.ToolName, t.Action.Parameters)
		if err != nil {
			return failure(err, "tool %q failed", t.Action.ToolName)
		}
		d.show(ctx, display, out)
		r := success("tool %q executed", t.Action.ToolName)
		r.ResponseText = out
		return r

	case ActionSmartTask:
		prompt := fmt.Sprintf(
			"The user asked: %q at %s. The timer for that request has now elapsed. Complete the request now.",
			t.Action.OriginalRequest, t.Action.RequestedAt.Format(time.RFC3339),
		)
		return d.invokeLLM(ctx, llm, display, prompt)

	case ActionPlaySound:
		// No audio capability exists; a text chime through the display sink
		// is the intended degraded behavior.
		if display == nil {
			return failure(nil, "no display capability attached for notification")
		}
		if err := display.Show(ctx, fmt.Sprintf("🔔 Ding! Timer %q went off.", t.Name)); err != nil {
			return failure(err, "display failed")
		}
		return success("notification shown")

	default:
		return failure(nil, "unknown action kind %q", t.Action.Kind)
	}
}

// invokeLLM answers the prompt through the language model and forwards the
// response to the display sink when one is attached. Forwarding is best
// effort; the model call decides success.
func (d *Dispatcher) invokeLLM(ctx context.Context, llm LanguageModel, display Display, prompt string) ActionResult {
	if llm == nil {
		return failure(nil, "no language model capability attached")
	}
	text, err := llm.Invoke(ctx, prompt)
	if err != nil {
		return failure(err, "language model call failed")
	}
	d.show(ctx, display, text)
	r := success("language model responded")
	r.ResponseText = text
	return r
}

func (d *Dispatcher) show(ctx context.Context, display Display, text string) {
	if display == nil || text == "" {
		return
	}
	if err := display.Show(ctx, text); err != nil {
		slog.Warn("display forward failed", "err", err)
	}
}

func success(format string, args ...any) ActionResult {
	return ActionResult{Success: true, Message: fmt.Sprintf(format, args...)}
}

func failure(err error, format string, args ...any) ActionResult {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		err = fmt.Errorf("%s", msg)
	}
	return ActionResult{Success: false, Message: msg, Err: err}
}
