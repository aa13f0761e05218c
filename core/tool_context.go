package core

import (
	"context"

	"github.com/hupe1980/agentmux/logging"
)

// ToolContext provides the scoped surface handed to a tool implementation for
// one call: the request context (carrying cancellation and the call stack),
// the function call ID correlating the model request with the execution, the
// calling agent and a logger.
type ToolContext struct {
	ctx            context.Context
	functionCallID string
	agentName      string
	logger         logging.Logger
}

// NewToolContext constructs a tool context for one function call. A nil
// logger is replaced by a NoOpLogger.
func NewToolContext(ctx context.Context, functionCallID, agentName string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}

	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &ToolContext{
		ctx:            ctx,
		functionCallID: functionCallID,
		agentName:      agentName,
		logger:         logger,
	}
}

// Context returns the context associated with the tool invocation. Nested
// agent or workflow calls must use it so cancellation and depth propagate.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// AgentName returns the name of the agent that requested the call.
func (tc *ToolContext) AgentName() string { return tc.agentName }

// LogDebug logs at debug level with the call id and trace ids attached.
func (tc *ToolContext) LogDebug(msg string, args ...any) { tc.scoped().Debug(msg, args...) }

// LogInfo logs at info level with the call id and trace ids attached.
func (tc *ToolContext) LogInfo(msg string, args ...any) { tc.scoped().Info(msg, args...) }

// LogWarn logs at warn level with the call id and trace ids attached.
func (tc *ToolContext) LogWarn(msg string, args ...any) { tc.scoped().Warn(msg, args...) }

// LogError logs at error level with the call id and trace ids attached.
func (tc *ToolContext) LogError(msg string, args ...any) { tc.scoped().Error(msg, args...) }

func (tc *ToolContext) scoped() logging.Logger {
	return callLogger{Logger: logging.Bind(tc.logger, tc.ctx), callID: tc.functionCallID}
}

type callLogger struct {
	logging.Logger
	callID string
}

func (l callLogger) Debug(msg string, args ...any) { l.Logger.Debug(msg, l.with(args)...) }
func (l callLogger) Info(msg string, args ...any)  { l.Logger.Info(msg, l.with(args)...) }
func (l callLogger) Warn(msg string, args ...any)  { l.Logger.Warn(msg, l.with(args)...) }
func (l callLogger) Error(msg string, args ...any) { l.Logger.Error(msg, l.with(args)...) }

func (l callLogger) with(args []any) []any {
	if l.callID == "" {
		return args
	}

	return append([]any{"call_id", l.callID}, args...)
}
