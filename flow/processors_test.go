package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/internal/testutil"
	"github.com/hupe1980/agentmux/model"
)

func TestHistoryProcessor_Truncates(t *testing.T) {
	agent := &testAgent{name: "a", maxHistory: 2}
	inv := &Invocation{
		Prior: testutil.NewConversation().User("one").ToolRound("t", "", "x").Assistant("two").Build(),
		Turns: []core.Turn{core.NewUserTurn("three")},
	}

	req := model.Request{}
	require.NoError(t, NewHistoryProcessor().ProcessRequest(context.Background(), inv, &req, agent))

	// the orphaned tool result is dropped
	require.Len(t, req.Turns, 2)
	assert.Equal(t, "two", req.Turns[0].Text)
	assert.Equal(t, "three", req.Turns[1].Text)
}

func TestHistoryProcessor_KeepsAllByDefault(t *testing.T) {
	inv := &Invocation{
		Prior: []core.Turn{core.NewUserTurn("a"), core.NewAssistantTurn("b")},
		Turns: []core.Turn{core.NewUserTurn("c")},
	}

	req := model.Request{}
	require.NoError(t, NewHistoryProcessor().ProcessRequest(context.Background(), inv, &req, &testAgent{}))
	assert.Len(t, req.Turns, 3)
	assert.Len(t, inv.Conversation(), 3)
}

func TestToolsProcessor(t *testing.T) {
	var calls int32

	agent := &testAgent{name: "a"}
	req := model.Request{}
	require.NoError(t, NewToolsProcessor().ProcessRequest(context.Background(), &Invocation{}, &req, agent))
	assert.Nil(t, req.Tools)

	agent.tools = append(agent.tools, countingUppercase(&calls))
	require.NoError(t, NewToolsProcessor().ProcessRequest(context.Background(), &Invocation{}, &req, agent))
	require.Len(t, req.Tools, 1)
	assert.Equal(t, "function", req.Tools[0].Type)
	assert.Equal(t, textSchema, req.Tools[0].Function.Parameters)
}

func TestInstructionsProcessor(t *testing.T) {
	req := model.Request{}
	require.NoError(t, NewInstructionsProcessor().ProcessRequest(context.Background(), &Invocation{}, &req, &testAgent{instructions: "sys"}))
	assert.Equal(t, "sys", req.Instructions)
}
