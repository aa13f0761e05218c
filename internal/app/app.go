// Package app assembles the service from configuration: provider
// factories, capability bindings, conversation and artifact stores, the
// built-in agents and the meme-generation workflow, all registered on one
// frozen orchestrator shared by every transport.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentmux"
	"github.com/hupe1980/agentmux/agent"
	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/config"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/meme"
	"github.com/hupe1980/agentmux/internal/publishing"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
	"github.com/hupe1980/agentmux/workflow"
)

// Names of the built-in agents and the capabilities they are bound to.
const (
	ChatbotName = "chatbot"
	ShouterName = "shouter"

	ChatCapability    = "chat"
	WriterCapability  = "writer"
	PlannerCapability = "planner"
	ShoutCapability   = "shout"
)

// App is the wired service.
type App struct {
	Config       *config.Config
	Orchestrator *agentmux.Orchestrator
	Capabilities *capability.Registry
	Memory       core.MemoryStore
	Artifacts    core.ArtifactStore
	Logger       logging.Logger

	closers []func() error
}

// New builds the service from cfg. The returned orchestrator is frozen.
// Close releases store connections.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Info("app.ready",
		"agents", a.Orchestrator.Agents(),
		"workflows", a.Orchestrator.Workflows(),
		"memory", cfg.Memory.Backend,
		"artifacts", cfg.Artifacts.Backend,
	)

	return a, nil
}

func (a *App) build(ctx context.Context) error {
	reg, err := NewCapabilities(a.Config, a.Logger)
	if err != nil {
		return err
	}

	a.Capabilities = reg

	mem, closeMem, err := NewMemory(ctx, a.Config.Memory)
	if err != nil {
		return err
	}

	a.Memory = mem
	a.addCloser(closeMem)

	art, err := NewArtifacts(ctx, a.Config.Artifacts, a.Config.Server.PublicURL)
	if err != nil {
		return err
	}

	a.Artifacts = art

	a.Orchestrator = agentmux.New(func(o *agentmux.Options) {
		o.Memory = mem
		o.MaxConcurrent = a.Config.Server.MaxConcurrent
		o.Logger = a.Logger
		o.Instruments = telemetry.Default()
	})

	if err := a.registerAgents(); err != nil {
		return err
	}

	a.Orchestrator.Freeze()

	return nil
}

func (a *App) registerAgents() error {
	gen := a.agentOptions

	chatbot, err := agent.NewFromRegistry(ChatbotName, a.Capabilities, ChatCapability, gen, func(o *agent.Options) {
		o.Description = "Answers chat messages directly."
		o.Instruction = agent.NewInstructionFromText("You are a helpful assistant.")
	})
	if err != nil {
		return fmt.Errorf("build %s: %w", ChatbotName, err)
	}

	shouter, err := agent.NewFromRegistry(ShouterName, a.Capabilities, ShoutCapability, gen, func(o *agent.Options) {
		o.Description = "Shouts the input back using the uppercase tool."
		o.Instruction = agent.NewInstructionFromText("Convert the user's text to upper case with the uppercase tool and answer with its result.")
		o.Tools = []tool.Tool{NewUppercaseTool()}
	})
	if err != nil {
		return fmt.Errorf("build %s: %w", ShouterName, err)
	}

	publisher, err := a.newPublisher()
	if err != nil {
		return fmt.Errorf("build %s: %w", publishing.PublisherName, err)
	}

	wf, memeAgent, err := a.newMeme()
	if err != nil {
		return fmt.Errorf("build %s: %w", meme.AgentName, err)
	}

	for _, ag := range []*agent.Agent{chatbot, shouter, publisher, memeAgent} {
		if err := a.Orchestrator.RegisterAgent(ag); err != nil {
			return err
		}
	}

	return a.Orchestrator.RegisterWorkflow(wf)
}

func (a *App) newPublisher() (*agent.Agent, error) {
	binding, err := a.Capabilities.Binding(WriterCapability)
	if err != nil {
		return nil, err
	}

	llm, err := a.Capabilities.Model(WriterCapability)
	if err != nil {
		return nil, err
	}

	return publishing.NewPublisher(binding, publishing.Models{Copywriter: llm, Editor: llm, Publisher: llm}, a.agentOptions)
}

func (a *App) newMeme() (*workflow.Workflow, *agent.Agent, error) {
	binding, err := a.Capabilities.Binding(PlannerCapability)
	if err != nil {
		return nil, nil, err
	}

	llm, err := a.Capabilities.Model(PlannerCapability)
	if err != nil {
		return nil, nil, err
	}

	extractor, err := meme.NewExtractor(binding, llm, a.agentOptions)
	if err != nil {
		return nil, nil, err
	}

	captioner, err := meme.NewCaptioner(binding, llm, a.agentOptions)
	if err != nil {
		return nil, nil, err
	}

	wf, err := meme.NewWorkflow(extractor, captioner, a.Artifacts, func(o *meme.Options) {
		o.Logger = a.Logger
		o.MaxDepth = a.Config.Generation.MaxDepth
		o.Instruments = telemetry.Default()
	})
	if err != nil {
		return nil, nil, err
	}

	memeAgent, err := meme.NewAgent(binding, llm, wf, a.agentOptions)
	if err != nil {
		return nil, nil, err
	}

	return wf, memeAgent, nil
}

func (a *App) agentOptions(o *agent.Options) {
	g := a.Config.Generation

	o.MaxRounds = g.MaxRounds
	o.MaxDepth = g.MaxDepth
	o.MaxHistoryMessages = g.MaxHistory
	o.ReportToolErrors = g.ReportToolErrors
	o.ToolTimeout = g.ToolTimeout
	o.Logger = a.Logger
	o.Instruments = telemetry.Default()
}

func (a *App) addCloser(fn func() error) {
	if fn != nil {
		a.closers = append(a.closers, fn)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}

	a.closers = nil

	return errors.Join(errs...)
}

// Uppercase is the transform behind the uppercase tool and the /input route.
func Uppercase(text string) string { return strings.ToUpper(text) }

// NewUppercaseTool returns the "uppercase" function tool.
func NewUppercaseTool() tool.Tool {
	return tool.NewFunctionTool(
		"uppercase",
		"Convert text to upper case",
		tool.TextParameters("text", "Text to convert"),
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			text, _ := args["text"].(string)
			return Uppercase(text), nil
		},
	)
}
