package tools

import (
	"context"
	"encoding/json"
)

// Tool is the interface every agent-invocable tool implements.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage // JSON Schema
	Execute(ctx context.Context, params json.RawMessage) (string, error)
}
