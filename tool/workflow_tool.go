package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/workflow"
)

// WorkflowRunner is the part of a workflow a tool needs to run it.
type WorkflowRunner interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (*workflow.Result, error)
}

// Formatter reduces a workflow result to the value handed back to the model.
type Formatter func(res *workflow.Result) (any, error)

// LocatorFormatter returns {"locator": url, "message": ...} for results whose
// output carries a locator and the raw output otherwise.
func LocatorFormatter(res *workflow.Result) (any, error) {
	loc, ok := res.Locator()
	if !ok {
		return res.Output, nil
	}

	return map[string]any{
		"locator": loc,
		"message": fmt.Sprintf("The %s workflow finished. Result available at %s", res.Workflow, loc),
	}, nil
}

// FromWorkflow exposes a workflow as a tool taking one string argument
// "text". A nil format selects LocatorFormatter.
func FromWorkflow(w WorkflowRunner, format Formatter) *FunctionTool {
	if format == nil {
		format = LocatorFormatter
	}

	description := w.Description()
	if description == "" {
		description = fmt.Sprintf("Run the %s workflow.", w.Name())
	}

	return NewFunctionTool(w.Name(), description, TextParameters("text", "Input for the workflow"), func(tc *core.ToolContext, args map[string]any) (any, error) {
		input, _ := args["text"].(string)

		res, err := w.Run(tc.Context(), input)
		if err != nil {
			return nil, err
		}

		tc.LogDebug("tool.workflow.completed", "workflow", w.Name(), "stages", len(res.Stages))

		return format(res)
	})
}
