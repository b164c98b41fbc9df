package tools

import "context"

// ToolExecutor defines the interface for executing a tool.
// Implementations must be thread-safe and respect context cancellation.
type ToolExecutor interface {
	// Execute runs the tool with the given input parameters.
	// The input map contains the tool-specific parameters as specified in the tool schema.
	// The returned value must be JSON-serializable (maps, slices, primitives,
	// json.RawMessage). Returns an error if execution fails or context is cancelled.
	Execute(ctx context.Context, input map[string]any) (any, error)
}

// ExecutorFunc adapts a function to ToolExecutor
type ExecutorFunc func(ctx context.Context, input map[string]any) (any, error)

func (f ExecutorFunc) Execute(ctx context.Context, input map[string]any) (any, error) {
	return f(ctx, input)
}
