package flow

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
)

// PreparedCall is a validated tool call ready for execution.
type PreparedCall struct {
	Call core.ToolCall
	Tool tool.Tool
	Args map[string]any
}

// CallOutcome is the result of one executed call. Exactly one of Output and
// Err is meaningful.
type CallOutcome struct {
	Call     core.ToolCall
	Output   any
	Err      error
	Duration time.Duration
}

// FunctionExecutor executes a batch of validated tool calls. Implementations must:
//   - Respect ctx cancellation
//   - Never panic (recover internally and report ToolExecutionFailed)
//   - Return exactly one outcome per call, in the order of the calls
type FunctionExecutor interface {
	Execute(ctx context.Context, agentName string, calls []PreparedCall, logger logging.Logger) []CallOutcome
}

// FunctionExecutorConfig configures the default parallel executor.
type FunctionExecutorConfig struct {
	MaxParallel    int           // 0 or <1 => one worker per call
	ToolTimeout    time.Duration // 0 => no per call timeout
	LogStartEvents bool          // log a start line per function
	Instruments    *telemetry.Instruments
}

// parallelFunctionExecutor is the default implementation.
type parallelFunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewParallelFunctionExecutor constructs a new executor with the given config.
func NewParallelFunctionExecutor(cfg FunctionExecutorConfig) FunctionExecutor {
	return &parallelFunctionExecutor{cfg: cfg}
}

func (e *parallelFunctionExecutor) Execute(ctx context.Context, agentName string, calls []PreparedCall, logger logging.Logger) []CallOutcome {
	n := len(calls)
	if n == 0 {
		return nil
	}

	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	outcomes := make([]CallOutcome, n)

	// Fast path: single call, execute inline.
	if n == 1 {
		outcomes[0] = e.executeSingle(ctx, agentName, calls[0], logger)
		return outcomes
	}

	maxPar := e.cfg.MaxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)
	batchStart := time.Now()

	for i := range calls {
		if err := core.FromContext(ctx); err != nil { // pre-check cancellation
			outcomes[i] = CallOutcome{Call: calls[i].Call, Err: err}
			continue
		}

		wg.Add(1)

		sem <- struct{}{}

		go func(idx int, pc PreparedCall) {
			defer wg.Done()
			defer func() { <-sem }()

			outcomes[idx] = e.executeSingle(ctx, agentName, pc, logger)
		}(i, calls[i])
	}

	wg.Wait()

	logger.Debug(
		"agent.functions.batch.complete",
		"agent", agentName,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return outcomes
}

func (e *parallelFunctionExecutor) executeSingle(ctx context.Context, agentName string, pc PreparedCall, logger logging.Logger) CallOutcome {
	name := pc.Call.Name

	if err := core.FromContext(ctx); err != nil {
		return CallOutcome{Call: pc.Call, Err: err}
	}

	ctx, span := otel.Tracer("agentmux/flow").Start(ctx, "Tool.Call")
	defer span.End()

	span.SetAttributes(
		attribute.String("agent", agentName),
		attribute.String("tool", name),
		attribute.String("call_id", pc.Call.ID),
	)

	callCtx := ctx
	if e.cfg.ToolTimeout > 0 {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, e.cfg.ToolTimeout)
		defer cancel()
	}

	if e.cfg.LogStartEvents {
		logger.Info("agent.function.start", "agent", agentName, "function", name, "function_call_id", pc.Call.ID)
	}

	toolCtx := core.NewToolContext(callCtx, pc.Call.ID, agentName, logger)
	start := time.Now()

	var (
		result any
		err    error
	)

	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				logger.Error("agent.function.panic", "agent", agentName, "function", name, "recover", r)
			}
		}()

		result, err = pc.Tool.Call(toolCtx, pc.Args)
	}()

	if err != nil {
		if ctx.Err() == nil && callCtx.Err() != nil {
			err = core.ToolExecutionFailed(name, fmt.Errorf("timed out after %s", e.cfg.ToolTimeout))
		} else {
			err = tool.ExecutionError(ctx, name, err)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		result = nil
	}

	dur := time.Since(start)

	logger.Info(
		"agent.function.executed",
		"agent", agentName,
		"function", name,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)

	e.cfg.Instruments.RecordToolCall(ctx, agentName, name, err)

	return CallOutcome{Call: pc.Call, Output: result, Err: err, Duration: dur}
}

// panicError converts a recovered panic value to an error carrying the stack.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
