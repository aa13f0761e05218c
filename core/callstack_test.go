package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterCall_PushesFrames(t *testing.T) {
	ctx, err := EnterCall(context.Background(), Frame{Kind: FrameAgent, Name: "a"}, 3)
	require.NoError(t, err)

	child, err := EnterCall(ctx, Frame{Kind: FrameWorkflow, Name: "w"}, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, Depth(ctx))
	assert.Equal(t, 2, Depth(child))
	assert.Equal(t, []Frame{{FrameAgent, "a"}, {FrameWorkflow, "w"}}, CallStack(child))
}

func TestEnterCall_ExceedsDepth(t *testing.T) {
	ctx := context.Background()

	var err error
	for i := 0; i < 2; i++ {
		ctx, err = EnterCall(ctx, Frame{Kind: FrameAgent, Name: "loop"}, 2)
		require.NoError(t, err)
	}

	_, err = EnterCall(ctx, Frame{Kind: FrameAgent, Name: "loop"}, 2)
	require.ErrorIs(t, err, ErrMaxDepthExceeded)
	assert.Contains(t, err.Error(), "agent:loop -> agent:loop -> agent:loop")
}

func TestEnterCall_SiblingsAreIndependent(t *testing.T) {
	root, err := EnterCall(context.Background(), Frame{Kind: FrameAgent, Name: "root"}, 0)
	require.NoError(t, err)

	left, _ := EnterCall(root, Frame{Kind: FrameAgent, Name: "left"}, 0)
	right, _ := EnterCall(root, Frame{Kind: FrameAgent, Name: "right"}, 0)

	assert.Equal(t, "left", CallStack(left)[1].Name)
	assert.Equal(t, "right", CallStack(right)[1].Name)
}

func TestRoundLimiter(t *testing.T) {
	rl := NewRoundLimiter(2)

	assert.NoError(t, rl.Increment())
	assert.Equal(t, 1, rl.Remaining())
	assert.NoError(t, rl.Increment())
	assert.Error(t, rl.Increment())
	assert.Equal(t, 3, rl.Count())
	assert.Equal(t, 0, rl.Remaining())
}

func TestToolResult_Content(t *testing.T) {
	assert.Equal(t, "HI", ToolResult{Output: "HI"}.Content())
	assert.Equal(t, `{"copy":"x"}`, ToolResult{Output: map[string]string{"copy": "x"}}.Content())
	assert.Equal(t, `{"error":"nope"}`, ToolResult{Error: "nope"}.Content())
	assert.Equal(t, "null", ToolResult{}.Content())
}
