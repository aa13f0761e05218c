package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/agentmux/core"
)

// Step produces one scripted response. It receives the request so fakes can
// react to tool results or user input.
type Step func(req Request) (*Response, error)

// Text returns a step answering with final text.
func Text(text string) Step {
	return func(Request) (*Response, error) {
		return &Response{Text: text, FinishReason: "stop"}, nil
	}
}

// Call returns a step requesting one tool call with the given JSON arguments.
func Call(name, args string) Step {
	return func(Request) (*Response, error) {
		return &Response{
			ToolCalls:    []core.ToolCall{{ID: "call_" + uuid.NewString(), Name: name, Arguments: args}},
			FinishReason: "tool_calls",
		}, nil
	}
}

// Fail returns a step failing with err.
func Fail(err error) Step {
	return func(Request) (*Response, error) { return nil, err }
}

// Echo returns a step answering with transform applied to the latest tool
// result, or to the latest user text when no tool ran yet.
func Echo(transform func(string) string) Step {
	return func(req Request) (*Response, error) {
		in := req.LastUserText()

		for i := len(req.Turns) - 1; i >= 0; i-- {
			if t := req.Turns[i]; t.Role == core.RoleTool && t.ToolResult != nil {
				in = t.ToolResult.Content()
				break
			}

			if req.Turns[i].Role == core.RoleUser {
				break
			}
		}

		return &Response{Text: transform(in), FinishReason: "stop"}, nil
	}
}

// ScriptedModel is a deterministic in-memory Model that replays a sequence of
// steps. Once the script is exhausted the last step repeats when Repeat is
// set, otherwise Generate fails with ProviderUnavailable. Requests are
// recorded for assertions.
type ScriptedModel struct {
	mu       sync.Mutex
	name     string
	steps    []Step
	next     int
	requests []Request

	// Repeat replays the last step forever once the script is exhausted.
	Repeat bool
}

// NewScriptedModel constructs a ScriptedModel replaying steps in order.
func NewScriptedModel(name string, steps ...Step) *ScriptedModel {
	return &ScriptedModel{name: name, steps: steps}
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.ClassifyProviderError("scripted", err)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)

	var step Step

	switch {
	case m.next < len(m.steps):
		step = m.steps[m.next]
		m.next++
	case m.Repeat && len(m.steps) > 0:
		step = m.steps[len(m.steps)-1]
	}
	m.mu.Unlock()

	if step == nil {
		return nil, core.ProviderUnavailable("scripted", errors.New("script exhausted"))
	}

	resp, err := step(req)
	if err != nil {
		return nil, core.ClassifyProviderError("scripted", err)
	}

	return resp, nil
}

// AddStep appends a step to the script.
func (m *ScriptedModel) AddStep(s Step) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps = append(m.steps, s)
}

// CallCount returns how many times Generate was called.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.requests)
}

// Requests returns a snapshot of the recorded requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)

	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: m.name, Provider: "scripted", SupportsTools: true}
}

// UppercaseModel answers every request with the upper-cased user input.
// It never requests tools.
type UppercaseModel struct{}

// Generate implements Model.
func (UppercaseModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.ClassifyProviderError("uppercase", err)
	}

	text := req.LastUserText()
	if text == "" {
		return nil, core.ProviderUnavailable("uppercase", fmt.Errorf("no user turn in request"))
	}

	return &Response{Text: strings.ToUpper(text), FinishReason: "stop"}, nil
}

// Info implements Model.
func (UppercaseModel) Info() Info {
	return Info{Name: "uppercase", Provider: "scripted"}
}

// RelayModel forwards the latest user text to one tool and answers with
// the tool's result. It holds no per-request state and may serve
// concurrent conversations.
type RelayModel struct {
	Tool  string
	Field string
}

// Generate implements Model.
func (m RelayModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.ClassifyProviderError("relay", err)
	}

	for i := len(req.Turns) - 1; i >= 0; i-- {
		t := req.Turns[i]
		if t.Role == core.RoleUser {
			break
		}

		if t.Role == core.RoleTool && t.ToolResult != nil && t.ToolResult.Name == m.Tool {
			return &Response{Text: t.ToolResult.Content(), FinishReason: "stop"}, nil
		}
	}

	text := req.LastUserText()
	if text == "" {
		return nil, core.ProviderUnavailable("relay", fmt.Errorf("no user turn in request"))
	}

	args, err := json.Marshal(map[string]string{m.Field: text})
	if err != nil {
		return nil, core.ProviderUnavailable("relay", err)
	}

	return &Response{
		ToolCalls:    []core.ToolCall{{ID: "call_" + uuid.NewString(), Name: m.Tool, Arguments: string(args)}},
		FinishReason: "tool_calls",
	}, nil
}

// Info implements Model.
func (m RelayModel) Info() Info {
	return Info{Name: "relay:" + m.Tool, Provider: "scripted", SupportsTools: true}
}
