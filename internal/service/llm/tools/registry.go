package tools

import (
	"context"
	"fmt"
	"sync"

	llmModels "chatloop/internal/domain/models/llm"
	domainllm "chatloop/internal/domain/services/llm"
)

// registeredTool pairs the schema offered to the model with its executor
type registeredTool struct {
	definition llmModels.ToolDefinition
	executor   ToolExecutor
}

// ToolRegistry manages tool executors and handles tool execution.
// It is thread-safe and can be used concurrently.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
	order []string
}

var _ domainllm.ToolSet = (*ToolRegistry)(nil)

// NewToolRegistry creates a new tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]registeredTool),
	}
}

// Register adds a tool to the registry.
// The definition is checked against the provider library's tool format.
// If a tool with the same name already exists, it is replaced in place.
func (r *ToolRegistry) Register(definition llmModels.ToolDefinition, executor ToolExecutor) error {
	if executor == nil {
		return fmt.Errorf("tool %q: executor is required", definition.Name())
	}
	if _, err := definition.ToLibraryTool(); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := definition.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = registeredTool{definition: definition, executor: executor}
	return nil
}

// Get retrieves a tool executor by name.
// Returns nil if the tool is not registered.
func (r *ToolRegistry) Get(name string) ToolExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name].executor
}

// Definitions returns the registered schemas in registration order
func (r *ToolRegistry) Definitions() []llmModels.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llmModels.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].definition)
	}
	return defs
}

// Execute runs a single tool and returns the result.
// A missing tool or a failed execution is reported in the result, not as an error.
func (r *ToolRegistry) Execute(ctx context.Context, call domainllm.ToolCall) domainllm.ToolResult {
	executor := r.Get(call.Name)
	if executor == nil {
		return domainllm.ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   fmt.Errorf("tool not found: %s", call.Name),
			IsError: true,
		}
	}

	input := call.Input
	if input == nil {
		input = map[string]any{}
	}

	result, err := executor.Execute(ctx, input)
	if err != nil {
		return domainllm.ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   err,
			IsError: true,
		}
	}

	return domainllm.ToolResult{
		ID:     call.ID,
		Name:   call.Name,
		Result: result,
	}
}

// ExecuteParallel runs multiple tools concurrently and returns results in the same order.
// Context cancellation will stop all ongoing executions.
func (r *ToolRegistry) ExecuteParallel(ctx context.Context, calls []domainllm.ToolCall) []domainllm.ToolResult {
	if len(calls) == 0 {
		return []domainllm.ToolResult{}
	}

	results := make([]domainllm.ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		go func(index int, toolCall domainllm.ToolCall) {
			defer wg.Done()

			// Check context before executing
			select {
			case <-ctx.Done():
				results[index] = domainllm.ToolResult{
					ID:      toolCall.ID,
					Name:    toolCall.Name,
					Error:   ctx.Err(),
					IsError: true,
				}
				return
			default:
			}

			results[index] = r.Execute(ctx, toolCall)
		}(i, call)
	}

	wg.Wait()

	return results
}
