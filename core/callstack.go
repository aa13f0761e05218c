package core

import "context"

// Frame kinds pushed onto the call stack.
const (
	FrameAgent    = "agent"
	FrameWorkflow = "workflow"
)

// DefaultMaxDepth bounds nested agent and workflow invocations.
const DefaultMaxDepth = 8

// Frame is one entry of the invocation chain of a request.
type Frame struct {
	Kind string
	Name string
}

// String renders the frame as kind:name.
func (f Frame) String() string { return f.Kind + ":" + f.Name }

type callStackKey struct{}

// CallStack returns a copy of the invocation chain carried by ctx, outermost first.
func CallStack(ctx context.Context) []Frame {
	stack, _ := ctx.Value(callStackKey{}).([]Frame)

	out := make([]Frame, len(stack))
	copy(out, stack)

	return out
}

// Depth returns the number of frames carried by ctx.
func Depth(ctx context.Context) int {
	stack, _ := ctx.Value(callStackKey{}).([]Frame)
	return len(stack)
}

// EnterCall pushes frame onto the chain carried by ctx. It fails with
// MaxDepthExceeded when the resulting depth exceeds maxDepth; maxDepth <= 0
// selects DefaultMaxDepth. The parent context is never mutated so sibling
// calls see independent chains.
func EnterCall(ctx context.Context, frame Frame, maxDepth int) (context.Context, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	parent, _ := ctx.Value(callStackKey{}).([]Frame)

	stack := make([]Frame, len(parent), len(parent)+1)
	copy(stack, parent)
	stack = append(stack, frame)

	if len(stack) > maxDepth {
		return ctx, MaxDepthExceeded(stack, maxDepth)
	}

	return context.WithValue(ctx, callStackKey{}, stack), nil
}
