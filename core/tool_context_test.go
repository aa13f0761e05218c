package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hupe1980/agentmux/logging"
)

type mockLogger struct{ mock.Mock }

func (m *mockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *mockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *mockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *mockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

func TestToolContext_Accessors(t *testing.T) {
	type key struct{}

	ctx := context.WithValue(context.Background(), key{}, "v")
	tc := NewToolContext(ctx, "call-1", "publisher", nil)

	assert.Equal(t, "v", tc.Context().Value(key{}))
	assert.Equal(t, "call-1", tc.FunctionCallID())
	assert.Equal(t, "publisher", tc.AgentName())
	assert.IsType(t, logging.NoOpLogger{}, tc.Logger())

	//nolint:staticcheck // nil context is accepted on purpose
	assert.NotNil(t, NewToolContext(nil, "", "", nil).Context())
}

func TestToolContext_LogAttachesCallID(t *testing.T) {
	l := new(mockLogger)
	l.On("Info", "tool.started", []any{"call_id", "call-7", "tool", "uppercase"}).Once()
	l.On("Warn", "tool.slow", []any(nil)).Once()

	NewToolContext(context.Background(), "call-7", "shouter", l).LogInfo("tool.started", "tool", "uppercase")
	NewToolContext(context.Background(), "", "shouter", l).LogWarn("tool.slow")

	l.AssertExpectations(t)
}
