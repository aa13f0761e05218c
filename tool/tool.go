// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (plain functions, other agents, workflows)
// with schema validated arguments, schema checked outputs and consistent
// typed errors.
package tool

import (
	"context"
	"errors"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/util"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are attached to an agent at construction time. The model sees the
// name, description and input schema; the generation loop validates every
// requested call against Parameters before any tool of the round runs.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a proper JSON schema for parameters
//   - Be safe for concurrent use by multiple requests
//   - Use the ToolContext's context for anything that blocks
type Tool interface {
	// Name returns the identifier for this tool, unique within one agent.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// OutputSchema returns a JSON schema the result must conform to, or nil
	// when the result is unconstrained.
	OutputSchema() map[string]any

	// Call executes the tool with structured arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Validate checks args against the tool's input schema. A mismatch is
// reported as ToolInputInvalid; values are never coerced.
func Validate(t Tool, args map[string]any) error {
	schema := t.Parameters()
	if schema == nil {
		return nil
	}

	if err := util.ValidateParameters(args, schema); err != nil {
		return core.ToolInputInvalid(t.Name(), err)
	}

	return nil
}

// ValidateOutput checks a result against the tool's output schema. A
// mismatch is reported as ToolExecutionFailed.
func ValidateOutput(t Tool, result any) error {
	schema := t.OutputSchema()
	if schema == nil {
		return nil
	}

	normalized, err := util.Normalize(result)
	if err != nil {
		return core.ToolExecutionFailed(t.Name(), err)
	}

	v, err := util.NewValidator(schema)
	if err != nil {
		return core.ToolExecutionFailed(t.Name(), err)
	}

	if err := v.Validate(normalized); err != nil {
		return core.ToolExecutionFailed(t.Name(), err)
	}

	return nil
}

// ExecutionError classifies an error returned by a tool implementation.
// Request scoped failures (cancellation, depth) and errors the tool already
// typed for itself pass through unchanged; everything else, including typed
// failures of nested agents or workflows, becomes ToolExecutionFailed.
func ExecutionError(ctx context.Context, name string, err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		switch e.Code {
		case core.CodeCanceled, core.CodeMaxDepthExceeded:
			return err
		case core.CodeToolInputInvalid, core.CodeToolExecutionFailed:
			if e.Name == name {
				return err
			}
		}
	}

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return core.FromContext(ctx)
	}

	return core.ToolExecutionFailed(name, err)
}
