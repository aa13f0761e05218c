package app

import (
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/config"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/model/anthropic"
	"github.com/hupe1980/agentmux/model/ollama"
	"github.com/hupe1980/agentmux/model/openai"
)

// Scripted model identifiers served without a network provider.
const (
	ScriptedUppercase     = "uppercase"
	ScriptedUppercaseTool = "uppercase-tool"
)

// NewCapabilities registers one factory per provider and one binding per
// configured capability.
func NewCapabilities(cfg *config.Config, logger logging.Logger) (*capability.Registry, error) {
	reg := capability.NewRegistry()
	p := cfg.Providers

	reg.RegisterProvider("groq", func(b capability.Binding) (model.Model, error) {
		warnMissingKey(logger, b, p.GroqAPIKey)

		temperature := func(o *openai.Options) { o.Temperature = p.Temperature }

		if p.GroqBaseURL == "" {
			return openai.NewGroqModel(p.GroqAPIKey, b.ModelID, temperature), nil
		}

		return openai.NewModel(clientOptions(p.GroqAPIKey, p.GroqBaseURL, p), func(o *openai.Options) {
			o.Model = b.ModelID
			o.Provider = "groq"
		}, temperature), nil
	})

	reg.RegisterProvider("openai", func(b capability.Binding) (model.Model, error) {
		warnMissingKey(logger, b, p.OpenAIAPIKey)

		return openai.NewModel(clientOptions(p.OpenAIAPIKey, p.OpenAIBaseURL, p), func(o *openai.Options) {
			o.Model = b.ModelID
			o.Temperature = p.Temperature
		}), nil
	})

	reg.RegisterProvider("anthropic", func(b capability.Binding) (model.Model, error) {
		warnMissingKey(logger, b, p.AnthropicAPIKey)

		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(b.ModelID)
			o.APIKey = p.AnthropicAPIKey
			o.BaseURL = p.AnthropicBaseURL
			o.Temperature = p.Temperature
		}), nil
	})

	reg.RegisterProvider("ollama", func(b capability.Binding) (model.Model, error) {
		return ollama.NewModel(b.ModelID, func(o *ollama.Options) {
			if p.OllamaBaseURL != "" {
				o.BaseURL = p.OllamaBaseURL
			}

			if p.Timeout > 0 {
				o.Timeout = p.Timeout
			}

			o.Temperature = p.Temperature
		})
	})

	reg.RegisterProvider("scripted", NewScriptedModel)

	for _, name := range cfg.CapabilityNames() {
		c := cfg.Capabilities[name]

		if err := reg.Register(capability.Binding{Name: name, Provider: c.Provider, ModelID: c.Model}); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

// NewScriptedModel serves the "scripted" provider: "uppercase" answers with
// the upper-cased input, "uppercase-tool" routes it through the uppercase
// tool first.
func NewScriptedModel(b capability.Binding) (model.Model, error) {
	switch b.ModelID {
	case ScriptedUppercase:
		return model.UppercaseModel{}, nil
	case ScriptedUppercaseTool:
		return model.RelayModel{Tool: "uppercase", Field: "text"}, nil
	default:
		return nil, fmt.Errorf("unknown scripted model %q (want %s or %s)", b.ModelID, ScriptedUppercase, ScriptedUppercaseTool)
	}
}

func clientOptions(apiKey, baseURL string, p config.ProvidersConfig) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	if p.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(p.Timeout))
	}

	return opts
}

func warnMissingKey(logger logging.Logger, b capability.Binding, key string) {
	if strings.TrimSpace(key) == "" {
		logger.Warn("capability.api_key.missing", "capability", b.Name, "provider", b.Provider, "model", b.ModelID)
	}
}
