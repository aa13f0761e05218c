package tool

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/util"
)

// TypedTool exposes a function over Go types as a tool. Both schemas are
// derived from In and Out by reflection, arguments are decoded into In after
// validation and the encoded Out is checked against the output schema.
type TypedTool[In, Out any] struct {
	*FunctionTool
}

// NewTyped creates a TypedTool.
//
// Example:
//
//	type topic struct {
//	  Topic string `json:"topic" jsonschema:"description=Blog post subject"`
//	}
//	type post struct {
//	  Copy string `json:"copy"`
//	}
//
//	writer := tool.NewTyped("copywriter", "Write a blog post", func(tc *core.ToolContext, in topic) (post, error) {
//	  ...
//	})
func NewTyped[In, Out any](name, description string, fn func(toolCtx *core.ToolContext, in In) (Out, error)) *TypedTool[In, Out] {
	var (
		in  In
		out Out
	)

	ft := NewFunctionTool(name, description, util.CreateSchema(&in), func(tc *core.ToolContext, args map[string]any) (any, error) {
		typed, err := decode[In](args)
		if err != nil {
			return nil, core.ToolInputInvalid(name, err)
		}

		return fn(tc, typed)
	})

	return &TypedTool[In, Out]{FunctionTool: ft.WithOutputSchema(util.CreateSchema(&out))}
}

func decode[T any](args map[string]any) (T, error) {
	var v T

	b, err := json.Marshal(args)
	if err != nil {
		return v, fmt.Errorf("encode arguments: %w", err)
	}

	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode arguments: %w", err)
	}

	return v, nil
}
