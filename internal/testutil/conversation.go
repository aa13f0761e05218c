package testutil

import (
	"fmt"

	"github.com/hupe1980/agentmux/core"
)

// ConversationBuilder provides a fluent helper for constructing turn
// sequences in tests.
// Example:
//
//	turns := testutil.NewConversation().
//		User("hi").
//		ToolRound("uppercase", `{"text":"hi"}`, "HI").
//		Assistant("HI").
//		Build()
//
// Tool call IDs are assigned sequentially ("call-1", "call-2", ...).
type ConversationBuilder struct {
	turns []core.Turn
	calls int
}

// NewConversation creates an empty builder.
func NewConversation() *ConversationBuilder { return &ConversationBuilder{} }

// User appends a user turn (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.turns = append(b.turns, core.NewUserTurn(text))
	return b
}

// Assistant appends a final assistant turn (chainable).
func (b *ConversationBuilder) Assistant(text string) *ConversationBuilder {
	b.turns = append(b.turns, core.NewAssistantTurn(text))
	return b
}

// ToolRound appends an assistant turn requesting tool with args followed by
// the tool turn carrying output (chainable).
func (b *ConversationBuilder) ToolRound(tool, args string, output any) *ConversationBuilder {
	id := b.nextID()

	b.turns = append(b.turns,
		core.NewAssistantTurn("", core.ToolCall{ID: id, Name: tool, Arguments: args}),
		core.NewToolTurn(core.ToolResult{CallID: id, Name: tool, Output: output}),
	)

	return b
}

// ToolFailure appends a tool round whose result reports errMsg (chainable).
func (b *ConversationBuilder) ToolFailure(tool, args, errMsg string) *ConversationBuilder {
	id := b.nextID()

	b.turns = append(b.turns,
		core.NewAssistantTurn("", core.ToolCall{ID: id, Name: tool, Arguments: args}),
		core.NewToolTurn(core.ToolResult{CallID: id, Name: tool, Error: errMsg}),
	)

	return b
}

// Build returns a copy of the accumulated turns.
func (b *ConversationBuilder) Build() []core.Turn {
	out := make([]core.Turn, len(b.turns))
	copy(out, b.turns)

	return out
}

func (b *ConversationBuilder) nextID() string {
	b.calls++
	return fmt.Sprintf("call-%d", b.calls)
}
