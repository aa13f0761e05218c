// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API with function/tool calling. Any OpenAI-compatible
// endpoint works; NewGroqModel targets Groq's hosted models.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// Options configure the OpenAI model adapter.
type Options struct {
	Model               string
	Provider            string // reported in Info and typed errors
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model. Client options (API key, base URL,
// HTTP client) are passed through to the SDK.
func NewModel(clientOpts []option.RequestOption, optFns ...func(o *Options)) *Model {
	client := openai.NewClient(clientOpts...)
	return NewModelFromClient(&client, optFns...)
}

// NewGroqModel creates a model served by Groq's OpenAI-compatible API.
func NewGroqModel(apiKey, modelID string, optFns ...func(o *Options)) *Model {
	fns := append([]func(o *Options){func(o *Options) {
		o.Model = modelID
		o.Provider = "groq"
	}}, optFns...)

	return NewModel([]option.RequestOption{option.WithAPIKey(apiKey), option.WithBaseURL(GroqBaseURL)}, fns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Provider:            "openai",
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Generate performs one chat completion and normalizes the first choice.
func (m *Model) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	params := m.buildParams(req, buildMessages(req))

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, m.classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, core.ProviderUnavailable(m.opts.Provider, errors.New("no choices returned"))
	}

	ch0 := resp.Choices[0]

	out := &model.Response{
		ID:           resp.ID,
		Text:         ch0.Message.Content,
		FinishReason: ch0.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}

	for _, tc := range ch0.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return out, nil
}

func (m *Model) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return core.ProviderTimeout(m.opts.Provider, err)
		}
	}

	return core.ClassifyProviderError(m.opts.Provider, fmt.Errorf("chat completion: %w", err))
}

// buildMessages converts normalized turns into OpenAI chat messages.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, t := range req.Turns {
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(t.Text))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(t.Text))
		case core.RoleAssistant:
			if !t.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(t.Text))
				continue
			}

			msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: extractToolCalls(t)}
			if t.Text != "" {
				msg.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(t.Text)}
			}

			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		case core.RoleTool:
			if t.ToolResult != nil {
				messages = append(messages, openai.ToolMessage(t.ToolResult.Content(), t.ToolResult.CallID))
			}
		}
	}

	return messages
}

func extractToolCalls(t core.Turn) []openai.ChatCompletionMessageToolCallParam {
	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(t.ToolCalls))

	for _, tc := range t.ToolCalls {
		args := tc.Arguments
		if args == "" {
			args = "{}"
		}

		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: args,
			},
		})
	}

	return toolCalls
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (m *Model) buildParams(req model.Request, messages []openai.ChatCompletionMessageParamUnion) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}

	params.Tools = tools

	return params
}

// Info returns metadata describing this model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      m.opts.Provider,
		SupportsTools: true,
	}
}
