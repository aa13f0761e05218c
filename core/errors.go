package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code classifies agentmux errors. Transports map codes to their own status
// vocabulary; the core never does.
type Code string

const (
	// CodeInvalidInput indicates the request text was empty or malformed.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeUnknownAgent indicates the requested agent is not registered.
	CodeUnknownAgent Code = "UNKNOWN_AGENT"
	// CodeUnknownWorkflow indicates the requested workflow is not registered.
	CodeUnknownWorkflow Code = "UNKNOWN_WORKFLOW"
	// CodeUnknownCapability indicates a capability name has no binding.
	CodeUnknownCapability Code = "UNKNOWN_CAPABILITY"
	// CodeDuplicateName indicates a registration reused an existing name.
	CodeDuplicateName Code = "DUPLICATE_NAME"
	// CodeRegistryFrozen indicates a registration after the registry was frozen.
	CodeRegistryFrozen Code = "REGISTRY_FROZEN"
	// CodeToolInputInvalid indicates tool arguments did not match the input schema.
	CodeToolInputInvalid Code = "TOOL_INPUT_INVALID"
	// CodeToolExecutionFailed indicates a tool failed or produced non-conforming output.
	CodeToolExecutionFailed Code = "TOOL_EXECUTION_FAILED"
	// CodeGenerationDidNotConverge indicates the round bound was exhausted.
	CodeGenerationDidNotConverge Code = "GENERATION_DID_NOT_CONVERGE"
	// CodeMaxDepthExceeded indicates nested invocations went deeper than allowed.
	CodeMaxDepthExceeded Code = "MAX_DEPTH_EXCEEDED"
	// CodeWorkflowStageFailed indicates a workflow stage aborted the pipeline.
	CodeWorkflowStageFailed Code = "WORKFLOW_STAGE_FAILED"
	// CodeProviderUnavailable indicates the model provider failed or returned nothing usable.
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	// CodeProviderTimeout indicates the model provider exceeded its deadline.
	CodeProviderTimeout Code = "PROVIDER_TIMEOUT"
	// CodeCanceled indicates the caller canceled the request.
	CodeCanceled Code = "CANCELED"
)

// Error is the single typed error used across agentmux. It carries a Code for
// classification, the name of the entity involved (agent, tool, capability,
// provider) and, for workflow failures, the failing stage. The cause stays
// reachable through Unwrap.
type Error struct {
	Code    Code
	Message string
	Name    string
	Stage   string
	Err     error
}

// Sentinels for errors.Is. Matching is by Code only.
var (
	ErrInvalidInput             = &Error{Code: CodeInvalidInput}
	ErrUnknownAgent             = &Error{Code: CodeUnknownAgent}
	ErrUnknownWorkflow          = &Error{Code: CodeUnknownWorkflow}
	ErrUnknownCapability        = &Error{Code: CodeUnknownCapability}
	ErrDuplicateName            = &Error{Code: CodeDuplicateName}
	ErrRegistryFrozen           = &Error{Code: CodeRegistryFrozen}
	ErrToolInputInvalid         = &Error{Code: CodeToolInputInvalid}
	ErrToolExecutionFailed      = &Error{Code: CodeToolExecutionFailed}
	ErrGenerationDidNotConverge = &Error{Code: CodeGenerationDidNotConverge}
	ErrMaxDepthExceeded         = &Error{Code: CodeMaxDepthExceeded}
	ErrWorkflowStageFailed      = &Error{Code: CodeWorkflowStageFailed}
	ErrProviderUnavailable      = &Error{Code: CodeProviderUnavailable}
	ErrProviderTimeout          = &Error{Code: CodeProviderTimeout}
	ErrCanceled                 = &Error{Code: CodeCanceled}
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString("[")
	b.WriteString(string(e.Code))
	b.WriteString("] ")
	b.WriteString(e.Message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// MarshalJSON renders the error for structured logs and transport bodies.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Name    string `json:"name,omitempty"`
		Stage   string `json:"stage,omitempty"`
		Cause   string `json:"cause,omitempty"`
	}{
		Code:    e.Code,
		Message: e.Message,
		Name:    e.Name,
		Stage:   e.Stage,
	}

	if e.Err != nil {
		out.Cause = e.Err.Error()
	}

	return json.Marshal(out)
}

// NewError creates an *Error with the given code, entity name, message and cause.
func NewError(code Code, name, msg string, cause error) *Error {
	return &Error{Code: code, Name: name, Message: msg, Err: cause}
}

// CodeOf returns the Code of the outermost *Error in err's chain, or the empty
// string when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ""
}

// InvalidInput reports a malformed request.
func InvalidInput(msg string) *Error {
	return NewError(CodeInvalidInput, "", msg, nil)
}

// UnknownAgent reports a dispatch to an unregistered agent.
func UnknownAgent(name string) *Error {
	return NewError(CodeUnknownAgent, name, fmt.Sprintf("agent %q is not registered", name), nil)
}

// UnknownWorkflow reports a run of an unregistered workflow.
func UnknownWorkflow(name string) *Error {
	return NewError(CodeUnknownWorkflow, name, fmt.Sprintf("workflow %q is not registered", name), nil)
}

// UnknownCapability reports a capability name without a binding.
func UnknownCapability(name string) *Error {
	return NewError(CodeUnknownCapability, name, fmt.Sprintf("capability %q is not bound", name), nil)
}

// DuplicateName reports a registration that reuses a name.
func DuplicateName(name string) *Error {
	return NewError(CodeDuplicateName, name, fmt.Sprintf("name %q is already registered", name), nil)
}

// RegistryFrozen reports a registration after the registry stopped accepting entries.
func RegistryFrozen(name string) *Error {
	return NewError(CodeRegistryFrozen, name, fmt.Sprintf("cannot register %q: registry is frozen", name), nil)
}

// ToolInputInvalid reports arguments that failed schema validation or a call
// to a tool the agent does not expose.
func ToolInputInvalid(tool string, cause error) *Error {
	return NewError(CodeToolInputInvalid, tool, fmt.Sprintf("invalid input for tool %q", tool), cause)
}

// ToolExecutionFailed reports a failing tool or a tool output that does not
// conform to its declared schema.
func ToolExecutionFailed(tool string, cause error) *Error {
	return NewError(CodeToolExecutionFailed, tool, fmt.Sprintf("tool %q failed", tool), cause)
}

// GenerationDidNotConverge reports that an agent kept requesting tools past
// its round bound.
func GenerationDidNotConverge(agent string, maxRounds int) *Error {
	return NewError(CodeGenerationDidNotConverge, agent, fmt.Sprintf("agent %q did not produce a final answer within %d tool rounds", agent, maxRounds), nil)
}

// MaxDepthExceeded reports a nested invocation chain deeper than maxDepth.
func MaxDepthExceeded(stack []Frame, maxDepth int) *Error {
	parts := make([]string, len(stack))
	for i, f := range stack {
		parts[i] = f.String()
	}

	name := ""
	if len(stack) > 0 {
		name = stack[len(stack)-1].Name
	}

	return NewError(CodeMaxDepthExceeded, name, fmt.Sprintf("call depth %d exceeds limit %d (%s)", len(stack), maxDepth, strings.Join(parts, " -> ")), nil)
}

// WorkflowStageFailed reports the first failing stage of a workflow.
func WorkflowStageFailed(workflow, stage string, cause error) *Error {
	e := NewError(CodeWorkflowStageFailed, workflow, fmt.Sprintf("workflow %q failed at stage %q", workflow, stage), cause)
	e.Stage = stage

	return e
}

// ProviderUnavailable reports an unusable provider response or transport failure.
func ProviderUnavailable(provider string, cause error) *Error {
	return NewError(CodeProviderUnavailable, provider, fmt.Sprintf("provider %q unavailable", provider), cause)
}

// ProviderTimeout reports a provider call that exceeded its deadline.
func ProviderTimeout(provider string, cause error) *Error {
	return NewError(CodeProviderTimeout, provider, fmt.Sprintf("provider %q timed out", provider), cause)
}

// Canceled reports a request canceled by its caller.
func Canceled(cause error) *Error {
	return NewError(CodeCanceled, "", "request canceled", cause)
}

// ClassifyProviderError converts a raw provider client error into the typed
// taxonomy. Typed errors pass through unchanged.
func ClassifyProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ProviderTimeout(provider, err)
	case errors.Is(err, context.Canceled):
		return Canceled(err)
	default:
		return ProviderUnavailable(provider, err)
	}
}

// FromContext returns the typed error for a done context, or nil.
func FromContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(CodeProviderTimeout, "", "deadline exceeded", err)
	default:
		return Canceled(err)
	}
}
