package model

import (
	"context"
	"strings"

	"github.com/hupe1980/agentmux/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewFunctionDefinition builds a function ToolDefinition.
func NewFunctionDefinition(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// Request captures the normalized model input produced by flows.
type Request struct {
	Instructions string           `json:"instructions"` // System instructions for the model
	Turns        []core.Turn      `json:"turns"`        // Conversation so far, oldest first
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// LastUserText returns the text of the most recent user turn.
func (r Request) LastUserText() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == core.RoleUser {
			return r.Turns[i].Text
		}
	}

	return ""
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the complete output of one model call: either final text or
// one or more tool call requests (providers may return both; tool calls win).
type Response struct {
	ID           string          `json:"id,omitempty"`
	Text         string          `json:"text,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model requested tool invocations.
func (r *Response) HasToolCalls() bool { return r != nil && len(r.ToolCalls) > 0 }

// IsEmpty reports a response with neither text nor tool calls.
func (r *Response) IsEmpty() bool {
	return r == nil || (strings.TrimSpace(r.Text) == "" && len(r.ToolCalls) == 0)
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "groq", "anthropic", "ollama", "scripted"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by flows & agents to drive generation.
type Model interface {
	// Generate performs one blocking completion. It must honor ctx
	// cancellation and report failures as typed core errors.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
