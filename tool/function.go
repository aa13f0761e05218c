package tool

import (
	"time"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a JSON schema for parameters and, optionally, for the result
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext giving access to the
//     request context, logging and the function call ID
//   - Normalizes error handling so callers receive typed errors:
//     TOOL_INPUT_INVALID     -> schema / argument mismatch
//     TOOL_EXECUTION_FAILED  -> the function failed or returned a non-conforming result
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	// Tool identifier (snake_case or kebab-case)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// Optional JSON schema the result must satisfy
	output map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	upper := NewFunctionTool(
//	  "uppercase",
//	  "Convert text to upper case",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "text": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"text"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return strings.ToUpper(args["text"].(string)), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using reflection.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// WithOutputSchema sets the schema results must conform to and returns the tool.
func (t *FunctionTool) WithOutputSchema(schema map[string]any) *FunctionTool {
	t.output = schema
	return t
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// OutputSchema returns the result schema or nil.
func (t *FunctionTool) OutputSchema() map[string]any { return t.output }

// Call validates the provided args against the declared schema then invokes the
// underlying function. A partial result is never returned together with an error.
//
// Logging Fields:
//
//	tool: tool name
//	fc_id: function call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "fc_id", toolCtx.FunctionCallID())

	if err := Validate(t, args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())
		return nil, err
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		err = ExecutionError(toolCtx.Context(), t.name, err)
		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, err
	}

	if err := ValidateOutput(t, result); err != nil {
		logger.Error("tool.call.output_invalid", "tool", t.name, "error", err.Error())
		return nil, err
	}

	logger.Info("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
