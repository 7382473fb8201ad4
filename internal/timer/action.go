package timer

import "time"

// ActionKind identifies what a timer does when it fires.
type ActionKind string

const (
	ActionInvokeLLM   ActionKind = "invoke_llm"   // send Prompt to the language model
	ActionShowMessage ActionKind = "show_message" // hand Text to the display sink
	ActionExecuteTool ActionKind = "execute_tool" // invoke a named tool with Parameters
	ActionSmartTask   ActionKind = "smart_task"   // replay a captured user request to the language model
	ActionPlaySound   ActionKind = "play_sound"   // notification chime (no payload)
)

// Action describes the unit of work a timer performs on expiry. Kind selects
// the variant; only the fields for that variant are meaningful.
type Action struct {
	Kind ActionKind

	// invoke_llm
	Prompt string

	// show_message
	Text string

	// execute_tool
	ToolName   string
	Parameters map[string]any

	// smart_task
	OriginalRequest string
	RequestedAt     time.Time

	// FollowUps become brand-new timers after this action executes,
	// whether or not it succeeded.
	FollowUps []FollowUp
}

// FollowUp describes a timer to create once the parent action has run.
type FollowUp struct {
	Name   string
	Delay  time.Duration
	Action Action
}

// InvokeLLM returns an action that sends prompt to the language model.
func InvokeLLM(prompt string) Action {
	return Action{Kind: ActionInvokeLLM, Prompt: prompt}
}

// ShowMessage returns an action that forwards text to the display sink.
func ShowMessage(text string) Action {
	return Action{Kind: ActionShowMessage, Text: text}
}

// ExecuteTool returns an action that invokes the named tool.
func ExecuteTool(toolName string, parameters map[string]any) Action {
	return Action{Kind: ActionExecuteTool, ToolName: toolName, Parameters: parameters}
}

// SmartTask returns an action that replays a previously captured user
// request with contextual framing once the timer elapses.
func SmartTask(originalRequest string, requestedAt time.Time) Action {
	return Action{Kind: ActionSmartTask, OriginalRequest: originalRequest, RequestedAt: requestedAt}
}

// PlaySound returns the payload-free notification action.
func PlaySound() Action {
	return Action{Kind: ActionPlaySound}
}

// WithFollowUps returns a copy of a with the given follow-up timer specs.
func (a Action) WithFollowUps(followUps ...FollowUp) Action {
	a.FollowUps = followUps
	return a
}

// ActionResult is the outcome of one dispatch. It is transient: emitted on
// the event streams, never stored. TimerID, TimerName, and ExecutionCount
// identify the dispatch so subscribers can correlate without registry reads.
type ActionResult struct {
	Success        bool
	Message        string
	ResponseText   string // set by LLM-producing action kinds
	Err            error
	TimerID        string
	TimerName      string
	ExecutionCount int
}
