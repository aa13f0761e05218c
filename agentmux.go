// Package agentmux provides the Orchestrator: a closed registry of named
// agents and workflows that routes each inbound text request to one agent
// and returns its final text or a typed error.
//
// Most applications:
//  1. Build capability bindings, agents and workflows
//  2. Register them with New().RegisterAgent / RegisterWorkflow
//  3. Freeze the registry and hand the orchestrator to a transport
//
// The orchestrator holds no per-request mutable state. Once frozen, lookups
// take no locks.
package agentmux

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentmux/agent"
	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
	"github.com/hupe1980/agentmux/workflow"
)

// Kind distinguishes registry entries.
type Kind string

const (
	// KindAgent marks an agent entry.
	KindAgent Kind = "agent"
	// KindWorkflow marks a workflow entry.
	KindWorkflow Kind = "workflow"
)

// Entry describes one registered agent or workflow.
type Entry struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Capability  string   `json:"capability,omitempty" yaml:"capability,omitempty"`
	Tools       []string `json:"tools,omitempty" yaml:"tools,omitempty"`
	Stages      []string `json:"stages,omitempty" yaml:"stages,omitempty"`
}

type entry struct {
	kind     Kind
	agent    *agent.Agent
	workflow *workflow.Workflow
}

// Options configures the Orchestrator.
type Options struct {
	// Memory is the conversation store for agents without their own; nil
	// disables conversations for those agents.
	Memory core.MemoryStore

	// MaxConcurrent limits simultaneous dispatches; 0 is unlimited.
	MaxConcurrent int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Instruments records dispatch metrics; defaults to telemetry.Default().
	Instruments *telemetry.Instruments
}

// Orchestrator routes requests to registered agents and workflows.
type Orchestrator struct {
	mu      sync.RWMutex
	frozen  atomic.Bool
	entries map[string]entry

	memory      core.MemoryStore
	sem         chan struct{}
	logger      logging.Logger
	instruments *telemetry.Instruments
}

// New creates an empty orchestrator.
func New(optFns ...func(o *Options)) *Orchestrator {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Instruments == nil {
		opts.Instruments = telemetry.Default()
	}

	o := &Orchestrator{
		entries:     make(map[string]entry),
		memory:      opts.Memory,
		logger:      opts.Logger,
		instruments: opts.Instruments,
	}

	if opts.MaxConcurrent > 0 {
		o.sem = make(chan struct{}, opts.MaxConcurrent)
	}

	return o
}

// RegisterAgent adds an agent. Agents and workflows share one namespace.
func (o *Orchestrator) RegisterAgent(a *agent.Agent) error {
	if a == nil {
		return core.InvalidInput("agent must not be nil")
	}

	return o.register(a.Name(), entry{kind: KindAgent, agent: a})
}

// RegisterWorkflow adds a workflow. Agents and workflows share one namespace.
func (o *Orchestrator) RegisterWorkflow(w *workflow.Workflow) error {
	if w == nil {
		return core.InvalidInput("workflow must not be nil")
	}

	return o.register(w.Name(), entry{kind: KindWorkflow, workflow: w})
}

func (o *Orchestrator) register(name string, e entry) error {
	if o.frozen.Load() {
		return core.RegistryFrozen(name)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.frozen.Load() {
		return core.RegistryFrozen(name)
	}

	if _, exists := o.entries[name]; exists {
		return core.DuplicateName(name)
	}

	o.entries[name] = e

	o.logger.Info("orchestrator.registered", "name", name, "kind", e.kind)

	return nil
}

// Freeze makes the registry read-only. Later registrations fail with
// RegistryFrozen.
func (o *Orchestrator) Freeze() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.frozen.Store(true)
}

// Frozen reports whether Freeze was called.
func (o *Orchestrator) Frozen() bool { return o.frozen.Load() }

func (o *Orchestrator) lookup(name string) (entry, bool) {
	if o.frozen.Load() {
		e, ok := o.entries[name]
		return e, ok
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	e, ok := o.entries[name]

	return e, ok
}

// Agent returns the named agent.
func (o *Orchestrator) Agent(name string) (*agent.Agent, bool) {
	e, ok := o.lookup(name)
	if !ok || e.kind != KindAgent {
		return nil, false
	}

	return e.agent, true
}

// Workflow returns the named workflow.
func (o *Orchestrator) Workflow(name string) (*workflow.Workflow, bool) {
	e, ok := o.lookup(name)
	if !ok || e.kind != KindWorkflow {
		return nil, false
	}

	return e.workflow, true
}

// Dispatch routes text to the named agent and returns its final answer.
// Blank text fails with InvalidInput, an unknown name with UnknownAgent.
func (o *Orchestrator) Dispatch(ctx context.Context, agentName, text string) (string, error) {
	return o.DispatchConversation(ctx, agentName, "", text)
}

// DispatchConversation is Dispatch continuing a stored conversation. Prior
// turns are loaded from the agent's memory store (or the orchestrator's) and
// the turns of this request are appended on success. With no store or an
// empty conversationID it behaves like Dispatch.
func (o *Orchestrator) DispatchConversation(ctx context.Context, agentName, conversationID, text string) (answer string, err error) {
	ctx, span := otel.Tracer("agentmux").Start(ctx, "Orchestrator.Dispatch", trace.WithAttributes(
		attribute.String("agent", agentName),
		attribute.String("conversation_id", conversationID),
	))
	defer span.End()

	logger := logging.Bind(o.logger, ctx)

	defer func() {
		o.instruments.RecordDispatch(ctx, agentName, err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("orchestrator.dispatch.error", "agent", agentName, "code", core.CodeOf(err), "error", err.Error())
		}
	}()

	if strings.TrimSpace(text) == "" {
		return "", core.InvalidInput("text must not be empty")
	}

	a, ok := o.Agent(agentName)
	if !ok {
		return "", core.UnknownAgent(agentName)
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	store := a.Memory()
	if store == nil {
		store = o.memory
	}

	if store == nil || conversationID == "" {
		return a.Generate(ctx, text, nil)
	}

	prior, err := store.Load(ctx, conversationID)
	if err != nil {
		return "", core.ProviderUnavailable("memory", fmt.Errorf("load conversation %q: %w", conversationID, err))
	}

	res, err := a.Run(ctx, text, prior)
	if err != nil {
		return "", err
	}

	if err := store.Append(ctx, conversationID, res.Turns...); err != nil {
		return "", core.ProviderUnavailable("memory", fmt.Errorf("append conversation %q: %w", conversationID, err))
	}

	logger.Debug("orchestrator.conversation.appended", "agent", agentName, "conversation_id", conversationID, "turns", len(res.Turns))

	return res.Text, nil
}

// RunWorkflow runs the named workflow directly.
func (o *Orchestrator) RunWorkflow(ctx context.Context, name, text string) (*workflow.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.InvalidInput("text must not be empty")
	}

	w, ok := o.Workflow(name)
	if !ok {
		return nil, core.UnknownWorkflow(name)
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return w.Run(ctx, text)
}

func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if o.sem == nil {
		return func() {}, nil
	}

	select {
	case o.sem <- struct{}{}:
		return func() { <-o.sem }, nil
	case <-ctx.Done():
		return nil, core.FromContext(ctx)
	}
}

// Agents returns the registered agent names, sorted.
func (o *Orchestrator) Agents() []string { return o.names(KindAgent) }

// Workflows returns the registered workflow names, sorted.
func (o *Orchestrator) Workflows() []string { return o.names(KindWorkflow) }

func (o *Orchestrator) names(kind Kind) []string {
	if !o.frozen.Load() {
		o.mu.RLock()
		defer o.mu.RUnlock()
	}

	names := make([]string, 0, len(o.entries))

	for name, e := range o.entries {
		if e.kind == kind {
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// Entries describes every registered agent and workflow, sorted by name.
func (o *Orchestrator) Entries() []Entry {
	var out []Entry

	for _, name := range o.Agents() {
		a, _ := o.Agent(name)

		tools := make([]string, 0, len(a.Tools()))
		for _, t := range a.Tools() {
			tools = append(tools, t.Name())
		}

		out = append(out, Entry{
			Name:        name,
			Kind:        KindAgent,
			Description: a.Description(),
			Capability:  a.Binding().Name,
			Tools:       tools,
		})
	}

	for _, name := range o.Workflows() {
		w, _ := o.Workflow(name)
		out = append(out, Entry{
			Name:        name,
			Kind:        KindWorkflow,
			Description: w.Description(),
			Stages:      w.StageNames(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
