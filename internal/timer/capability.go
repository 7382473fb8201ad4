package timer

import "context"

// The dispatcher calls out to exactly three capabilities. All are optional:
// a missing capability degrades to a failed ActionResult, never a crash.

// LanguageModel answers a prompt. The implementation may perform its own
// tool-calling internally; that is opaque to the timer core.
type LanguageModel interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ToolInvoker executes a named external tool with keyed arguments and
// returns its textual result.
type ToolInvoker interface {
	Invoke(ctx context.Context, toolName string, parameters map[string]any) (string, error)
}

// Display is a fire-and-forget notification sink (console, chat channel, UI).
type Display interface {
	Show(ctx context.Context, text string) error
}

// LanguageModelFunc adapts a function to the LanguageModel interface.
type LanguageModelFunc func(ctx context.Context, prompt string) (string, error)

func (f LanguageModelFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ToolInvokerFunc adapts a function to the ToolInvoker interface.
type ToolInvokerFunc func(ctx context.Context, toolName string, parameters map[string]any) (string, error)

func (f ToolInvokerFunc) Invoke(ctx context.Context, toolName string, parameters map[string]any) (string, error) {
	return f(ctx, toolName, parameters)
}

// DisplayFunc adapts a function to the Display interface.
type DisplayFunc func(ctx context.Context, text string) error

func (f DisplayFunc) Show(ctx context.Context, text string) error {
	return f(ctx, text)
}
