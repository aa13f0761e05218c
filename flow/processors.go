package flow

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/model"
)

// InstructionsProcessor handles system prompt and instruction processing.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest adds system instructions to the request.
func (p *InstructionsProcessor) ProcessRequest(ctx context.Context, _ *Invocation, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	req.Instructions = instructions

	return nil
}

// HistoryProcessor adds prior and current turns to the request.
type HistoryProcessor struct{}

// NewHistoryProcessor creates a new history processor.
func NewHistoryProcessor() *HistoryProcessor { return &HistoryProcessor{} }

// Name returns the processor's identifier.
func (p *HistoryProcessor) Name() string { return "history" }

// ProcessRequest sets the request turns: the tail of the prior conversation
// bounded by MaxHistoryMessages, then every turn of this request.
func (p *HistoryProcessor) ProcessRequest(_ context.Context, inv *Invocation, req *model.Request, agent FlowAgent) error {
	prior := truncateHistory(inv.Prior, agent.MaxHistoryMessages())

	turns := make([]core.Turn, 0, len(prior)+len(inv.Turns))
	turns = append(turns, prior...)
	req.Turns = append(turns, inv.Turns...)

	return nil
}

// truncateHistory keeps the last max turns without starting on an orphaned
// tool result.
func truncateHistory(prior []core.Turn, max int) []core.Turn {
	if max <= 0 || len(prior) <= max {
		return prior
	}

	prior = prior[len(prior)-max:]
	for len(prior) > 0 && prior[0].Role == core.RoleTool {
		prior = prior[1:]
	}

	return prior
}

// ToolsProcessor advertises the agent's tools.
type ToolsProcessor struct{}

// NewToolsProcessor creates a new tools processor.
func NewToolsProcessor() *ToolsProcessor { return &ToolsProcessor{} }

// Name returns the processor's identifier.
func (p *ToolsProcessor) Name() string { return "tools" }

// ProcessRequest adds a definition for every tool of the agent.
func (p *ToolsProcessor) ProcessRequest(_ context.Context, _ *Invocation, req *model.Request, agent FlowAgent) error {
	tools := agent.Tools()
	if len(tools) == 0 {
		return nil
	}

	req.Tools = make([]model.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		req.Tools = append(req.Tools, model.NewFunctionDefinition(t.Name(), t.Description(), t.Parameters()))
	}

	return nil
}
