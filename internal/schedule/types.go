package schedule

import (
	"fmt"
	"time"

	"github.com/coopco/tickbot/internal/timer"
)

// Kind defines how a standing schedule is expressed.
type Kind string

const (
	KindAt    Kind = "at"    // daily at a clock time (e.g. "14:30")
	KindEvery Kind = "every" // fixed interval (e.g. "30m", "2h")
	KindCron  Kind = "cron"  // cron expression (e.g. "0 */2 * * *")
)

// When pairs a schedule kind with its expression.
type When struct {
	Kind       Kind   `json:"kind"`
	Expression string `json:"expression"` // cron expr, clock time, or duration
}

// ActionSpec is the persistable form of a timer action. One of the payload
// fields applies depending on Kind; see toAction for the mapping.
type ActionSpec struct {
	Kind       string         `json:"kind"` // "reminder", "llm", "tool", "sound"
	Text       string         `json:"text,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (a ActionSpec) toAction() (timer.Action, error) {
	switch a.Kind {
	case "reminder":
		if a.Text == "" {
			return timer.Action{}, fmt.Errorf("reminder schedule needs text")
		}
		return timer.ShowMessage(a.Text), nil
	case "llm":
		if a.Prompt == "" {
			return timer.Action{}, fmt.Errorf("llm schedule needs a prompt")
		}
		return timer.InvokeLLM(a.Prompt), nil
	case "tool":
		if a.ToolName == "" {
			return timer.Action{}, fmt.Errorf("tool schedule needs tool_name")
		}
		return timer.ExecuteTool(a.ToolName, a.Parameters), nil
	case "sound":
		return timer.PlaySound(), nil
	default:
		return timer.Action{}, fmt.Errorf("unknown schedule action kind %q", a.Kind)
	}
}

// Definition is one standing schedule.
type Definition struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	When      When       `json:"when"`
	Action    ActionSpec `json:"action"`
	CreatedAt time.Time  `json:"created_at"`
}

// store is the on-disk JSON shape.
type store struct {
	Schedules []Definition `json:"schedules"`
}
