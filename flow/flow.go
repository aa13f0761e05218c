// Package flow implements the bounded generation loop that drives one agent
// request: compose context, call the model, validate and execute requested
// tools, feed results back and repeat until the model answers with text or
// the round bound is exhausted.
//
// The loop is assembled from request processors (instructions, history,
// tool definitions) and a FunctionExecutor so each concern can be replaced
// in isolation.
package flow

import (
	"context"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/model"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/tool"
)

// DefaultMaxRounds bounds the number of tool rounds per generation.
const DefaultMaxRounds = 8

// FlowAgent defines what the loop needs from an agent.
type FlowAgent interface {
	// Name returns the agent's name.
	Name() string

	// Model returns the model bound to the agent.
	Model() model.Model

	// ResolveInstructions returns the system instructions for this request.
	ResolveInstructions(ctx context.Context) (string, error)

	// Tools returns the agent's tools in a stable order.
	Tools() []tool.Tool

	// Tool looks up a tool by name.
	Tool(name string) (tool.Tool, bool)

	// MaxHistoryMessages bounds the prior turns sent to the model; 0 keeps all.
	MaxHistoryMessages() int
}

// State is the position of a generation in its lifecycle.
type State string

const (
	// StateAwaitingModelResponse means a model call is in flight.
	StateAwaitingModelResponse State = "awaiting_model_response"
	// StateToolRequested means the model asked for tool calls.
	StateToolRequested State = "tool_requested"
	// StateToolExecuted means tool results were appended.
	StateToolExecuted State = "tool_executed"
	// StateFinalTextReady means the model answered with text.
	StateFinalTextReady State = "final_text_ready"
	// StateFailed means the generation aborted with an error.
	StateFailed State = "failed"
)

// Invocation carries the per-request inputs and the turns produced so far.
// It is owned by one Run call and never shared.
type Invocation struct {
	Input string
	Prior []core.Turn
	Turns []core.Turn
	Round int
}

// Conversation returns prior turns followed by the turns of this request.
func (inv *Invocation) Conversation() []core.Turn {
	out := make([]core.Turn, 0, len(inv.Prior)+len(inv.Turns))
	out = append(out, inv.Prior...)

	return append(out, inv.Turns...)
}

// RequestProcessor processes the request before sending it to the model.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the model request before the call.
	ProcessRequest(ctx context.Context, inv *Invocation, req *model.Request, agent FlowAgent) error
}

// Result is the outcome of a successful generation.
type Result struct {
	Text   string      `json:"text"`
	Turns  []core.Turn `json:"turns"`
	Rounds int         `json:"rounds"`
}

// Options configures a Loop.
type Options struct {
	// MaxRounds bounds tool rounds; the model is called at most MaxRounds+1 times.
	MaxRounds int
	// ReportToolErrors feeds ToolExecutionFailed back to the model as the
	// tool result instead of aborting the request.
	ReportToolErrors bool
	Logger           logging.Logger
	Executor         FunctionExecutor
	Instruments      *telemetry.Instruments
}
