package core

import (
	"encoding/json"
	"fmt"
)

// Role identifies the producer of a Turn.
type Role string

const (
	// RoleSystem carries agent instructions.
	RoleSystem Role = "system"
	// RoleUser carries caller input.
	RoleUser Role = "user"
	// RoleAssistant carries model output (text and/or tool calls).
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of one tool call.
	RoleTool Role = "tool"
)

// ToolCall is a model request to invoke a named tool. Arguments holds the raw
// JSON object exactly as the provider produced it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolResult is the outcome of one ToolCall. Exactly one of Output or Error
// is meaningful.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Content renders the result as the text handed back to the model.
func (r ToolResult) Content() string {
	if r.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": r.Error})
		return string(b)
	}

	switch v := r.Output.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(b)
	}
}

// Turn is one entry of a generation context.
type Turn struct {
	Role       Role        `json:"role"`
	Text       string      `json:"text,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// NewUserTurn creates a caller input turn.
func NewUserTurn(text string) Turn { return Turn{Role: RoleUser, Text: text} }

// NewSystemTurn creates an instruction turn.
func NewSystemTurn(text string) Turn { return Turn{Role: RoleSystem, Text: text} }

// NewAssistantTurn creates a model output turn.
func NewAssistantTurn(text string, calls ...ToolCall) Turn {
	return Turn{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

// NewToolTurn creates a tool result turn.
func NewToolTurn(result ToolResult) Turn {
	return Turn{Role: RoleTool, ToolResult: &result}
}

// HasToolCalls reports whether the turn requests tool invocations.
func (t Turn) HasToolCalls() bool { return len(t.ToolCalls) > 0 }
