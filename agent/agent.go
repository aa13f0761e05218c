package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentmux/capability"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/flow"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
)

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	Description        string
	Instruction        Instruction
	Tools              []tool.Tool
	Memory             core.MemoryStore
	MaxRounds          int
	MaxDepth           int
	MaxHistoryMessages int
	ReportToolErrors   bool
	ToolTimeout        time.Duration
	MaxParallelTools   int
	Logger             logging.Logger
	Instruments        *telemetry.Instruments
}

// Agent integrates a language model with tools to answer text requests.
//
// The tool set is fixed at construction. Agents hold no per-request state;
// turns, the round counter and the call stack live in the request.
type Agent struct {
	name        string
	description string
	binding     capability.Binding
	llm         model.Model
	instruction Instruction
	tools       []tool.Tool
	toolIndex   map[string]tool.Tool
	memory      core.MemoryStore
	maxDepth    int
	maxHistory  int
	logger      logging.Logger
	instruments *telemetry.Instruments
	flow        *flow.BaseFlow
}

// New creates an agent bound to binding and its model.
//
// The agent is initialized with:
//   - "You are <name>, a helpful AI assistant." as instruction
//   - flow.DefaultMaxRounds tool rounds and core.DefaultMaxDepth call depth
//   - 20 prior turns of history sent to the model
//   - Tool failures aborting the request
func New(name string, binding capability.Binding, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	if strings.TrimSpace(name) == "" {
		return nil, core.InvalidInput("agent name must not be empty")
	}

	if llm == nil {
		return nil, core.InvalidInput(fmt.Sprintf("agent %q has no model", name))
	}

	opts := Options{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		MaxRounds:          flow.DefaultMaxRounds,
		MaxDepth:           core.DefaultMaxDepth,
		MaxHistoryMessages: 20,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Instruments == nil {
		opts.Instruments = telemetry.Default()
	}

	index := make(map[string]tool.Tool, len(opts.Tools))
	for _, t := range opts.Tools {
		if _, dup := index[t.Name()]; dup {
			return nil, core.DuplicateName(t.Name())
		}

		index[t.Name()] = t
	}

	a := &Agent{
		name:        name,
		description: opts.Description,
		binding:     binding,
		llm:         llm,
		instruction: opts.Instruction,
		tools:       append([]tool.Tool(nil), opts.Tools...),
		toolIndex:   index,
		memory:      opts.Memory,
		maxDepth:    opts.MaxDepth,
		maxHistory:  opts.MaxHistoryMessages,
		logger:      opts.Logger,
		instruments: opts.Instruments,
	}

	a.flow = flow.NewBaseFlow(a, func(o *flow.Options) {
		o.MaxRounds = opts.MaxRounds
		o.ReportToolErrors = opts.ReportToolErrors
		o.Logger = opts.Logger
		o.Instruments = opts.Instruments
		o.Executor = flow.NewParallelFunctionExecutor(flow.FunctionExecutorConfig{
			MaxParallel: opts.MaxParallelTools,
			ToolTimeout: opts.ToolTimeout,
			Instruments: opts.Instruments,
		})
	})

	return a, nil
}

// NewFromRegistry creates an agent for the named capability, resolving the
// binding and its model from reg.
func NewFromRegistry(name string, reg *capability.Registry, capabilityName string, optFns ...func(o *Options)) (*Agent, error) {
	binding, err := reg.Binding(capabilityName)
	if err != nil {
		return nil, err
	}

	llm, err := reg.Model(capabilityName)
	if err != nil {
		return nil, err
	}

	return New(name, binding, llm, optFns...)
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.description }

// Binding returns the capability binding the agent was built with.
func (a *Agent) Binding() capability.Binding { return a.binding }

// Model returns the bound model.
func (a *Agent) Model() model.Model { return a.llm }

// Memory returns the agent's conversation store or nil.
func (a *Agent) Memory() core.MemoryStore { return a.memory }

// Tools returns the agent's tools in registration order.
func (a *Agent) Tools() []tool.Tool { return a.tools }

// Tool looks up a tool by name.
func (a *Agent) Tool(name string) (tool.Tool, bool) {
	t, ok := a.toolIndex[name]
	return t, ok
}

// MaxHistoryMessages bounds the prior turns sent to the model.
func (a *Agent) MaxHistoryMessages() int { return a.maxHistory }

// ResolveInstructions resolves the agent's instruction for one request.
func (a *Agent) ResolveInstructions(ctx context.Context) (string, error) {
	return a.instruction.Resolve(ctx)
}

// Generate answers input on top of the prior conversation and returns the
// final text. It is safe to call concurrently.
func (a *Agent) Generate(ctx context.Context, input string, prior []core.Turn) (string, error) {
	res, err := a.Run(ctx, input, prior)
	if err != nil {
		return "", err
	}

	return res.Text, nil
}

// Run is Generate returning the full flow result, including the turns this
// call added, so callers can persist them.
func (a *Agent) Run(ctx context.Context, input string, prior []core.Turn) (*flow.Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, core.InvalidInput(fmt.Sprintf("agent %q requires non-empty text", a.name))
	}

	ctx, span := otel.Tracer("agentmux/agent").Start(ctx, "Agent.Generate", trace.WithAttributes(
		attribute.String("agent", a.name),
		attribute.String("capability", a.binding.Name),
	))
	defer span.End()

	ctx, err := core.EnterCall(ctx, core.Frame{Kind: core.FrameAgent, Name: a.name}, a.maxDepth)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	logger := logging.Bind(a.logger, ctx)
	logger.Debug("agent.generate.start", "agent", a.name, "depth", core.Depth(ctx), "prior_turns", len(prior))

	start := time.Now()

	res, err := a.flow.Run(ctx, input, prior)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.instruments.RecordError(ctx, err, "agent")

		return nil, err
	}

	span.SetAttributes(attribute.Int("rounds", res.Rounds))
	logger.Info("agent.generate.success", "agent", a.name, "rounds", res.Rounds, "duration_ms", time.Since(start).Milliseconds())

	return res, nil
}
