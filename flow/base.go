package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
)

// BaseFlow is the single agent generation loop: request -> model ->
// (optional tool round) -> model ... with pluggable request processors.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	executor          FunctionExecutor
	opts              Options
}

// NewBaseFlow creates a loop for agent with the default processors
// (instructions, history, tools) registered in that order.
func NewBaseFlow(agent FlowAgent, optFns ...func(o *Options)) *BaseFlow {
	opts := Options{
		MaxRounds: DefaultMaxRounds,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MaxRounds <= 0 {
		opts.MaxRounds = DefaultMaxRounds
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Instruments == nil {
		opts.Instruments = telemetry.Default()
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewParallelFunctionExecutor(FunctionExecutorConfig{Instruments: opts.Instruments})
	}

	f := &BaseFlow{
		agent:    agent,
		executor: executor,
		opts:     opts,
	}

	f.AddRequestProcessor(NewInstructionsProcessor())
	f.AddRequestProcessor(NewHistoryProcessor())
	f.AddRequestProcessor(NewToolsProcessor())

	return f
}

// AddRequestProcessor appends a request processor; order of registration defines execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// MaxRounds returns the configured tool round bound.
func (f *BaseFlow) MaxRounds() int { return f.opts.MaxRounds }

// Run executes one generation for input on top of the prior conversation.
// It returns the final text and every turn produced, or a typed error. No
// partial answer is ever returned together with an error.
func (f *BaseFlow) Run(ctx context.Context, input string, prior []core.Turn) (*Result, error) {
	name := f.agent.Name()
	logger := logging.Bind(f.opts.Logger, ctx)

	inv := &Invocation{
		Input: input,
		Prior: prior,
		Turns: []core.Turn{core.NewUserTurn(input)},
	}

	limiter := core.NewRoundLimiter(f.opts.MaxRounds)
	state := StateAwaitingModelResponse

	fail := func(err error) (*Result, error) {
		state = StateFailed
		logger.Warn("agent.generate.failed", "agent", name, "state", state, "round", inv.Round, "error", err.Error())
		f.opts.Instruments.RecordRounds(ctx, name, inv.Round)

		return nil, err
	}

	for {
		if err := core.FromContext(ctx); err != nil {
			return fail(err)
		}

		state = StateAwaitingModelResponse

		resp, err := f.runRound(ctx, inv)
		if err != nil {
			return fail(err)
		}

		if !resp.HasToolCalls() {
			text := resp.Text
			inv.Turns = append(inv.Turns, core.NewAssistantTurn(text))
			state = StateFinalTextReady

			logger.Info("agent.generate.completed", "agent", name, "state", state, "rounds", inv.Round)
			f.opts.Instruments.RecordRounds(ctx, name, inv.Round)

			return &Result{Text: text, Turns: inv.Turns, Rounds: inv.Round}, nil
		}

		state = StateToolRequested

		if err := limiter.Increment(); err != nil {
			return fail(core.GenerationDidNotConverge(name, f.opts.MaxRounds))
		}

		inv.Round = limiter.Count()
		inv.Turns = append(inv.Turns, core.NewAssistantTurn(resp.Text, resp.ToolCalls...))

		prepared, err := f.prepareCalls(resp.ToolCalls)
		if err != nil {
			return fail(err)
		}

		results, err := f.executeCalls(ctx, prepared, logger)
		if err != nil {
			return fail(err)
		}

		for i := range results {
			inv.Turns = append(inv.Turns, core.NewToolTurn(results[i]))
		}

		state = StateToolExecuted

		logger.Debug("agent.round.completed", "agent", name, "state", state, "round", inv.Round,
			"tool_calls", len(results), "rounds_remaining", limiter.Remaining())
	}
}

// processorError types a failed request processor. Cancellation keeps its
// own code; anything else means the request could not be assembled.
func processorError(ctx context.Context, name string, err error) error {
	var e *core.Error
	if errors.As(err, &e) {
		return err
	}

	if cerr := core.FromContext(ctx); cerr != nil {
		return cerr
	}

	return core.NewError(core.CodeProviderUnavailable, name, fmt.Sprintf("request processor %q failed", name), err)
}

// runRound builds the request and performs one model call.
func (f *BaseFlow) runRound(ctx context.Context, inv *Invocation) (*model.Response, error) {
	m := f.agent.Model()

	ctx, span := otel.Tracer("agentmux/flow").Start(ctx, "Flow.Round", trace.WithAttributes(
		attribute.String("agent", f.agent.Name()),
		attribute.Int("round", inv.Round),
		attribute.String("model", m.Info().Name),
	))
	defer span.End()

	req := model.Request{}
	for _, p := range f.requestProcessors {
		if err := p.ProcessRequest(ctx, inv, &req, f.agent); err != nil {
			err = processorError(ctx, p.Name(), err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return nil, err
		}
	}

	provider := m.Info().Provider

	resp, err := m.Generate(ctx, req)
	if err != nil {
		err = core.ClassifyProviderError(provider, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	if resp.IsEmpty() {
		err := core.ProviderUnavailable(provider, errors.New("empty response"))
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("tool_calls", len(resp.ToolCalls)))

	return resp, nil
}

// prepareCalls resolves and validates every call of a round before any of
// them runs. The first invalid call aborts the whole round.
func (f *BaseFlow) prepareCalls(calls []core.ToolCall) ([]PreparedCall, error) {
	prepared := make([]PreparedCall, 0, len(calls))

	for _, call := range calls {
		t, ok := f.agent.Tool(call.Name)
		if !ok {
			return nil, core.ToolInputInvalid(call.Name, fmt.Errorf("agent %q has no tool %q", f.agent.Name(), call.Name))
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, core.ToolInputInvalid(call.Name, fmt.Errorf("arguments are not a JSON object: %w", err))
			}

			if args == nil {
				args = map[string]any{}
			}
		}

		if err := tool.Validate(t, args); err != nil {
			return nil, err
		}

		prepared = append(prepared, PreparedCall{Call: call, Tool: t, Args: args})
	}

	return prepared, nil
}

// executeCalls runs a validated round and converts outcomes to results.
func (f *BaseFlow) executeCalls(ctx context.Context, calls []PreparedCall, logger logging.Logger) ([]core.ToolResult, error) {
	outcomes := f.executor.Execute(ctx, f.agent.Name(), calls, logger)
	results := make([]core.ToolResult, 0, len(outcomes))

	for _, o := range outcomes {
		res := core.ToolResult{CallID: o.Call.ID, Name: o.Call.Name, Output: o.Output}

		if o.Err != nil {
			if !f.opts.ReportToolErrors || !errors.Is(o.Err, core.ErrToolExecutionFailed) {
				return nil, o.Err
			}

			res.Output = nil
			res.Error = o.Err.Error()
		}

		results = append(results, res)
	}

	return results, nil
}
