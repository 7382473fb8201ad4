package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/coopco/tickbot/internal/timer"
)

// TimerService is the slice of the timer core the management tool needs.
type TimerService interface {
	CreateTimer(spec timer.Spec) string
	CancelTimer(id string) bool
	PauseTimer(id string) bool
	ResumeTimer(id string) bool
	GetTimer(id string) (timer.Timer, bool)
	ListActiveTimers() []timer.Timer
	ListTimersByName(name string) []timer.Timer
}

// ManageTimerTool is the agent's handle on the timer core: create, cancel,
// pause, resume, and inspect timers from a conversation. Duration and time
// parsing happens here, not in the core; the model is expected to have
// already normalized natural language ("in two hours") into one of the
// accepted forms.
type ManageTimerTool struct {
	svc TimerService
}

func NewManageTimerTool(svc TimerService) *ManageTimerTool {
	return &ManageTimerTool{svc: svc}
}

type requestTimeKey struct{}

// WithRequestTime records when the user's request entered the system, so a
// smart timer created during that conversation replays the request with its
// original timestamp rather than the moment the tool call ran.
func WithRequestTime(ctx context.Context, at time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, at)
}

func requestTime(ctx context.Context) time.Time {
	if at, ok := ctx.Value(requestTimeKey{}).(time.Time); ok && !at.IsZero() {
		return at
	}
	return time.Now()
}

func (t *ManageTimerTool) Name() string { return "manage_timer" }
func (t *ManageTimerTool) Description() string {
	return "Create, cancel, pause, resume, or list scheduled timers"
}

func (t *ManageTimerTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {
				"type": "string",
				"enum": ["create", "cancel", "pause", "resume", "get", "list"],
				"description": "Action to perform"
			},
			"name": {"type": "string", "description": "Timer name (for create, or name-based cancel)"},
			"description": {"type": "string", "description": "Optional free-text description (for create)"},
			"when": {
				"type": "string",
				"description": "When the timer fires: a Go duration ('10m', '2h30m'), a clock time ('18:30'), or an RFC3339 timestamp"
			},
			"kind": {
				"type": "string",
				"enum": ["reminder", "llm", "tool", "smart", "sound"],
				"description": "What to do on expiry (default reminder)"
			},
			"text": {"type": "string", "description": "Reminder text (kind=reminder)"},
			"prompt": {"type": "string", "description": "Prompt for the model (kind=llm)"},
			"request": {"type": "string", "description": "The user's original request to replay later (kind=smart)"},
			"tool_name": {"type": "string", "description": "Tool to invoke (kind=tool)"},
			"parameters": {"type": "object", "description": "Arguments for the tool (kind=tool)"},
			"every": {"type": "string", "description": "Recurring interval as a Go duration (for create)"},
			"times": {"type": "integer", "description": "Number of recurrences (required with every)"},
			"timer_id": {"type": "string", "description": "Timer id (for cancel/pause/resume/get)"}
		},
		"required": ["action"]
	}`)
}

func (t *ManageTimerTool) Execute(ctx context.Context, params json.RawMessage) (string, error) {
	args := gjson.ParseBytes(params)

	switch args.Get("action").String() {
	case "create":
		return t.create(ctx, args)

	case "cancel":
		if id := args.Get("timer_id").String(); id != "" {
			if !t.svc.CancelTimer(id) {
				return fmt.Sprintf("No timer with id %s (already fired or cancelled)", id), nil
			}
			return fmt.Sprintf("Timer %s cancelled", id), nil
		}
		if name := args.Get("name").String(); name != "" {
			var n int
			for _, tm := range t.svc.ListTimersByName(name) {
				if t.svc.CancelTimer(tm.ID) {
					n++
				}
			}
			return fmt.Sprintf("Cancelled %d timer(s) named %q", n, name), nil
		}
		return "", fmt.Errorf("cancel needs timer_id or name")

	case "pause":
		id := args.Get("timer_id").String()
		if id == "" {
			return "", fmt.Errorf("pause needs timer_id")
		}
		if !t.svc.PauseTimer(id) {
			return fmt.Sprintf("Timer %s not found or not active", id), nil
		}
		return fmt.Sprintf("Timer %s paused", id), nil

	case "resume":
		id := args.Get("timer_id").String()
		if id == "" {
			return "", fmt.Errorf("resume needs timer_id")
		}
		if !t.svc.ResumeTimer(id) {
			return fmt.Sprintf("Timer %s not found or not paused", id), nil
		}
		return fmt.Sprintf("Timer %s resumed", id), nil

	case "get":
		id := args.Get("timer_id").String()
		if id == "" {
			return "", fmt.Errorf("get needs timer_id")
		}
		tm, ok := t.svc.GetTimer(id)
		if !ok {
			return fmt.Sprintf("No timer with id %s", id), nil
		}
		return renderTimer(tm)

	case "list":
		active := t.svc.ListActiveTimers()
		if len(active) == 0 {
			return "No active timers", nil
		}
		var b strings.Builder
		for _, tm := range active {
			fmt.Fprintf(&b, "%s %q fires %s (%s)\n", tm.ID, tm.Name, tm.ExpiresAt.Format(time.RFC3339), tm.Action.Kind)
		}
		return b.String(), nil

	default:
		return "", fmt.Errorf("invalid action %q", args.Get("action").String())
	}
}

func (t *ManageTimerTool) create(ctx context.Context, args gjson.Result) (string, error) {
	name := args.Get("name").String()
	if name == "" {
		return "", fmt.Errorf("create needs a name")
	}
	when := args.Get("when").String()
	if when == "" {
		return "", fmt.Errorf("create needs when")
	}
	at, err := parseWhen(when, time.Now())
	if err != nil {
		return "", err
	}

	action, err := buildAction(ctx, args)
	if err != nil {
		return "", err
	}

	spec := timer.Spec{
		Name:        name,
		Description: args.Get("description").String(),
		At:          at,
		Action:      action,
	}
	if every := args.Get("every").String(); every != "" {
		interval, err := time.ParseDuration(every)
		if err != nil || interval <= 0 {
			return "", fmt.Errorf("invalid recurring interval %q", every)
		}
		times := int(args.Get("times").Int())
		if times <= 0 {
			return "", fmt.Errorf("recurring timers need a positive times value")
		}
		spec.Recurring = true
		spec.Interval = interval
		spec.MaxExecutions = times
	}

	id := t.svc.CreateTimer(spec)

	out, _ := sjson.Set("{}", "id", id)
	out, _ = sjson.Set(out, "name", name)
	out, _ = sjson.Set(out, "expires_at", at.Format(time.RFC3339))
	if spec.Recurring {
		out, _ = sjson.Set(out, "every", spec.Interval.String())
		out, _ = sjson.Set(out, "times", spec.MaxExecutions)
	}
	return out, nil
}

// buildAction maps the tool arguments onto an action variant.
func buildAction(ctx context.Context, args gjson.Result) (timer.Action, error) {
	kind := args.Get("kind").String()
	if kind == "" {
		kind = "reminder"
	}

	switch kind {
	case "reminder":
		text := args.Get("text").String()
		if text == "" {
			return timer.Action{}, fmt.Errorf("reminder needs text")
		}
		return timer.ShowMessage(text), nil

	case "llm":
		prompt := args.Get("prompt").String()
		if prompt == "" {
			return timer.Action{}, fmt.Errorf("llm needs a prompt")
		}
		return timer.InvokeLLM(prompt), nil

	case "smart":
		request := args.Get("request").String()
		if request == "" {
			return timer.Action{}, fmt.Errorf("smart needs the original request")
		}
		return timer.SmartTask(request, requestTime(ctx)), nil

	case "tool":
		toolName := args.Get("tool_name").String()
		if toolName == "" {
			return timer.Action{}, fmt.Errorf("tool needs tool_name")
		}
		var parameters map[string]any
		if raw := args.Get("parameters").Raw; raw != "" {
			if err := json.Unmarshal([]byte(raw), &parameters); err != nil {
				return timer.Action{}, fmt.Errorf("invalid tool parameters: %w", err)
			}
		}
		return timer.ExecuteTool(toolName, parameters), nil

	case "sound":
		return timer.PlaySound(), nil

	default:
		return timer.Action{}, fmt.Errorf("unknown kind %q", kind)
	}
}

func renderTimer(tm timer.Timer) (string, error) {
	out, _ := sjson.Set("{}", "id", tm.ID)
	out, _ = sjson.Set(out, "name", tm.Name)
	out, _ = sjson.Set(out, "status", string(tm.Status))
	out, _ = sjson.Set(out, "kind", string(tm.Action.Kind))
	out, _ = sjson.Set(out, "expires_at", tm.ExpiresAt.Format(time.RFC3339))
	out, _ = sjson.Set(out, "executions", tm.ExecutionCount)
	if tm.Recurring {
		out, _ = sjson.Set(out, "every", tm.Interval.String())
		out, _ = sjson.Set(out, "times", tm.MaxExecutions)
	}
	return out, nil
}

// parseWhen accepts a Go duration ("45m"), a clock time ("18:30", next
// occurrence), or an RFC3339 timestamp.
func parseWhen(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	if clk, err := time.Parse("15:04", s); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), clk.Hour(), clk.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.Add(24 * time.Hour)
		}
		return at, nil
	}
	if at, err := time.Parse(time.RFC3339, s); err == nil {
		return at, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse %q: use a duration ('10m'), a clock time ('18:30'), or RFC3339", s)
}
