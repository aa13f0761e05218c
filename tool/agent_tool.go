package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/util"
)

// Generator is the part of an agent a tool needs to delegate to it.
type Generator interface {
	Name() string
	Generate(ctx context.Context, input string, prior []core.Turn) (string, error)
}

// AgentToolOptions configures FromAgent.
type AgentToolOptions struct {
	// Name defaults to the agent name.
	Name string
	// Description is shown to the calling model.
	Description string
	// Parameters is the input schema; defaults to a single required string "text".
	Parameters map[string]any
	// Prompt is a text/template rendered over the arguments to build the
	// delegated input; defaults to "{{.text}}".
	Prompt string
	// OutputField names the result field carrying the agent's answer.
	OutputField string
}

// FromAgent exposes an agent as a tool. The nested generation shares the
// caller's context, so cancellation and the call depth limit apply to it.
// The result is {<OutputField>: answer}.
func FromAgent(g Generator, optFns ...func(o *AgentToolOptions)) *FunctionTool {
	opts := AgentToolOptions{
		Name:        g.Name(),
		Description: fmt.Sprintf("Delegate a request to the %s agent and return its answer.", g.Name()),
		Parameters:  TextParameters("text", "Input for the agent"),
		Prompt:      "{{.text}}",
		OutputField: "text",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	output := map[string]any{
		"type": "object",
		"properties": map[string]any{
			opts.OutputField: map[string]any{"type": "string"},
		},
		"required": []string{opts.OutputField},
	}

	return NewFunctionTool(opts.Name, opts.Description, opts.Parameters, func(tc *core.ToolContext, args map[string]any) (any, error) {
		prompt, err := util.RenderTemplate(opts.Prompt, args)
		if err != nil {
			return nil, fmt.Errorf("render prompt: %w", err)
		}

		tc.LogDebug("tool.agent.delegate", "tool", opts.Name, "agent", g.Name(), "caller", tc.AgentName())

		answer, err := g.Generate(tc.Context(), prompt, nil)
		if err != nil {
			return nil, err
		}

		return map[string]any{opts.OutputField: answer}, nil
	}).WithOutputSchema(output)
}

// TextParameters returns an object schema with one required string field.
func TextParameters(field, description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{"type": "string", "description": description},
		},
		"required": []string{field},
	}
}
