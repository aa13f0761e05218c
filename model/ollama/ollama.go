// Package ollama provides an implementation of model.Model backed by a local
// or remote Ollama server through its chat API with tool calling.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
	olla "github.com/ollama/ollama/api"
)

const providerName = "ollama"

// DefaultBaseURL is the address of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434"

// Options configures the Ollama model adapter.
type Options struct {
	Model       string
	BaseURL     string
	Timeout     time.Duration
	Temperature float64
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *olla.Client
	opts   Options
}

// NewModel creates a new Ollama model. The base URL defaults to DefaultBaseURL.
func NewModel(modelID string, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       modelID,
		BaseURL:     DefaultBaseURL,
		Timeout:     120 * time.Second,
		Temperature: 0.7,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	parsedURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	client := olla.NewClient(parsedURL, &http.Client{Timeout: opts.Timeout})

	return &Model{client: client, opts: opts}, nil
}

// Generate performs one non-streaming chat call.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	messages, err := buildMessages(req)
	if err != nil {
		return nil, core.ProviderUnavailable(providerName, err)
	}

	tools, err := buildTools(req.Tools)
	if err != nil {
		return nil, core.ProviderUnavailable(providerName, err)
	}

	stream := false
	chatReq := &olla.ChatRequest{
		Model:    m.opts.Model,
		Messages: messages,
		Stream:   &stream,
		Tools:    tools,
		Options:  map[string]any{"temperature": m.opts.Temperature},
	}

	var result *olla.ChatResponse

	if err := m.client.Chat(ctx, chatReq, func(resp olla.ChatResponse) error {
		result = &resp
		return nil
	}); err != nil {
		return nil, classify(err)
	}

	if result == nil {
		return nil, core.ProviderUnavailable(providerName, errors.New("empty chat response"))
	}

	out := &model.Response{
		Text:         result.Message.Content,
		FinishReason: result.DoneReason,
		Usage: &model.TokenUsage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
	}

	for _, tc := range result.Message.ToolCalls {
		args, err := json.Marshal(tc.Function.Arguments)
		if err != nil {
			return nil, core.ProviderUnavailable(providerName, fmt.Errorf("encode tool arguments: %w", err))
		}

		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        "call_" + uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: string(args),
		})
	}

	return out, nil
}

func classify(err error) error {
	var statusErr olla.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return core.ProviderTimeout(providerName, err)
		}
	}

	return core.ClassifyProviderError(providerName, fmt.Errorf("chat: %w", err))
}

func buildMessages(req model.Request) ([]olla.Message, error) {
	messages := make([]olla.Message, 0, len(req.Turns)+1)

	if req.Instructions != "" {
		messages = append(messages, olla.Message{Role: "system", Content: req.Instructions})
	}

	for _, t := range req.Turns {
		switch t.Role {
		case core.RoleTool:
			if t.ToolResult != nil {
				messages = append(messages, olla.Message{Role: "tool", Content: t.ToolResult.Content()})
			}
		case core.RoleAssistant:
			msg := olla.Message{Role: "assistant", Content: t.Text}

			for _, tc := range t.ToolCalls {
				var call olla.ToolCall

				call.Function.Name = tc.Name
				if tc.Arguments != "" {
					if err := json.Unmarshal([]byte(tc.Arguments), &call.Function.Arguments); err != nil {
						return nil, fmt.Errorf("decode arguments of %s: %w", tc.Name, err)
					}
				}

				msg.ToolCalls = append(msg.ToolCalls, call)
			}

			messages = append(messages, msg)
		default:
			messages = append(messages, olla.Message{Role: string(t.Role), Content: t.Text})
		}
	}

	return messages, nil
}

// buildTools converts definitions through their JSON form; both sides use the
// OpenAI function tool layout.
func buildTools(defs []model.ToolDefinition) (olla.Tools, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	b, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("encode tools: %w", err)
	}

	var tools olla.Tools
	if err := json.Unmarshal(b, &tools); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}

	return tools, nil
}

// Info returns metadata describing this Ollama model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      providerName,
		SupportsTools: true,
	}
}
