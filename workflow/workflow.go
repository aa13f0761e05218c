// Package workflow implements fixed, ordered multi-stage pipelines. Each
// stage receives the previous stage's output; the first failing stage aborts
// the run. A workflow yields a structured Result, never text; agents that
// expose a workflow as a tool decide how to phrase it.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentmux/core"
	"github.com/hupe1980/agentmux/logging"
	"github.com/hupe1980/agentmux/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage is one named step of a workflow.
type Stage struct {
	Name string
	Run  func(ctx context.Context, input any) (any, error)
}

// Locator is implemented by terminal outputs that point at a published
// artifact, e.g. a shareable URL.
type Locator interface {
	Locator() string
}

// StageTrace records the execution of one stage.
type StageTrace struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Result is the structured outcome of a successful run.
type Result struct {
	Workflow string       `json:"workflow"`
	Output   any          `json:"output"`
	Stages   []StageTrace `json:"stages"`
}

// Locator returns the locator of the final output, if it has one.
func (r *Result) Locator() (string, bool) {
	if r == nil {
		return "", false
	}

	l, ok := r.Output.(Locator)
	if !ok {
		return "", false
	}

	return l.Locator(), true
}

// Options configures a Workflow.
type Options struct {
	Description string
	Logger      logging.Logger
	MaxDepth    int
	Instruments *telemetry.Instruments
}

// Workflow is an immutable, ordered list of stages.
type Workflow struct {
	name        string
	description string
	stages      []Stage
	logger      logging.Logger
	maxDepth    int
	instruments *telemetry.Instruments
	tracer      trace.Tracer
}

// New creates a workflow. Stage names must be non-empty and unique and at
// least one stage is required.
func New(name string, stages []Stage, optFns ...func(o *Options)) (*Workflow, error) {
	opts := Options{
		Logger:      logging.NoOpLogger{},
		MaxDepth:    core.DefaultMaxDepth,
		Instruments: telemetry.Default(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if name == "" {
		return nil, core.InvalidInput("workflow name must not be empty")
	}

	if len(stages) == 0 {
		return nil, core.InvalidInput(fmt.Sprintf("workflow %q has no stages", name))
	}

	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		if s.Name == "" || s.Run == nil {
			return nil, core.InvalidInput(fmt.Sprintf("workflow %q has an unnamed or empty stage", name))
		}

		if _, dup := seen[s.Name]; dup {
			return nil, core.DuplicateName(s.Name)
		}

		seen[s.Name] = struct{}{}
	}

	return &Workflow{
		name:        name,
		description: opts.Description,
		stages:      append([]Stage(nil), stages...),
		logger:      opts.Logger,
		maxDepth:    opts.MaxDepth,
		instruments: opts.Instruments,
		tracer:      otel.Tracer("agentmux/workflow"),
	}, nil
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Description returns the human readable description.
func (w *Workflow) Description() string { return w.description }

// StageNames returns the stage names in execution order.
func (w *Workflow) StageNames() []string {
	names := make([]string, len(w.stages))
	for i, s := range w.stages {
		names[i] = s.Name
	}

	return names
}

// Run executes the stages in order. The first stage receives input; each
// later stage receives the previous output. The first failure aborts with
// WorkflowStageFailed and later stages never run. Cancellation and depth
// violations surface unchanged.
func (w *Workflow) Run(ctx context.Context, input string) (*Result, error) {
	ctx, err := core.EnterCall(ctx, core.Frame{Kind: core.FrameWorkflow, Name: w.name}, w.maxDepth)
	if err != nil {
		return nil, err
	}

	logger := logging.Bind(w.logger, ctx)
	logger.Info("workflow.run.start", "workflow", w.name, "stages", len(w.stages))

	var (
		current any = input
		traces      = make([]StageTrace, 0, len(w.stages))
		start       = time.Now()
	)

	for _, stage := range w.stages {
		if err := core.FromContext(ctx); err != nil {
			logger.Warn("workflow.run.canceled", "workflow", w.name, "stage", stage.Name)
			return nil, err
		}

		out, dur, err := w.runStage(ctx, stage, current)
		traces = append(traces, StageTrace{Name: stage.Name, Duration: dur})

		if err != nil {
			switch core.CodeOf(err) {
			case core.CodeCanceled, core.CodeMaxDepthExceeded:
				return nil, err
			}

			if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				logger.Warn("workflow.run.canceled", "workflow", w.name, "stage", stage.Name)
				return nil, core.FromContext(ctx)
			}

			logger.Error("workflow.stage.failed", "workflow", w.name, "stage", stage.Name, "error", err.Error())

			return nil, core.WorkflowStageFailed(w.name, stage.Name, err)
		}

		logger.Debug("workflow.stage.completed", "workflow", w.name, "stage", stage.Name, "duration_ms", dur.Milliseconds())

		current = out
	}

	logger.Info("workflow.run.completed", "workflow", w.name, "duration_ms", time.Since(start).Milliseconds())

	return &Result{Workflow: w.name, Output: current, Stages: traces}, nil
}

func (w *Workflow) runStage(ctx context.Context, stage Stage, input any) (out any, dur time.Duration, err error) {
	stageCtx, span := w.tracer.Start(ctx, "Workflow.Stage",
		trace.WithAttributes(
			attribute.String("workflow.name", w.name),
			attribute.String("workflow.stage", stage.Name),
		),
	)
	defer span.End()

	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}

		dur = time.Since(start)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		w.instruments.RecordStage(ctx, w.name, stage.Name, dur, err)
	}()

	out, err = stage.Run(stageCtx, input)

	return out, dur, err
}

// Step adapts a typed function into a Stage. When the previous stage
// produced a value of another type the stage fails without calling fn.
func Step[In, Out any](name string, fn func(ctx context.Context, in In) (Out, error)) Stage {
	return Stage{
		Name: name,
		Run: func(ctx context.Context, input any) (any, error) {
			in, ok := input.(In)
			if !ok {
				var zero In
				return nil, fmt.Errorf("stage %q expects %T, got %T", name, zero, input)
			}

			return fn(ctx, in)
		},
	}
}
