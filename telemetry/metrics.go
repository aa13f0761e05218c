package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentmux/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments groups the metrics agentmux records. A nil *Instruments is
// valid and records nothing.
type Instruments struct {
	dispatches    metric.Int64Counter
	toolCalls     metric.Int64Counter
	rounds        metric.Int64Histogram
	stageDuration metric.Float64Histogram
	errors        metric.Int64Counter
}

// NewInstruments creates the instruments from meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	dispatches, err := meter.Int64Counter(
		"agentmux.dispatch.total",
		metric.WithDescription("Dispatched requests by agent and outcome"),
	)
	if err != nil {
		return nil, err
	}

	toolCalls, err := meter.Int64Counter(
		"agentmux.tool.calls",
		metric.WithDescription("Tool invocations by agent, tool and outcome"),
	)
	if err != nil {
		return nil, err
	}

	rounds, err := meter.Int64Histogram(
		"agentmux.generation.rounds",
		metric.WithDescription("Tool rounds needed per generation"),
	)
	if err != nil {
		return nil, err
	}

	stageDuration, err := meter.Float64Histogram(
		"agentmux.workflow.stage.duration",
		metric.WithDescription("Workflow stage latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"agentmux.errors.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		dispatches:    dispatches,
		toolCalls:     toolCalls,
		rounds:        rounds,
		stageDuration: stageDuration,
		errors:        errCounter,
	}, nil
}

var (
	defaultOnce        sync.Once
	defaultInstruments *Instruments
)

// Default returns instruments bound to the global meter provider. The global
// provider delegates, so instruments created before Init still export.
func Default() *Instruments {
	defaultOnce.Do(func() {
		inst, err := NewInstruments(otel.Meter("agentmux"))
		if err == nil {
			defaultInstruments = inst
		}
	})

	return defaultInstruments
}

func outcome(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("outcome", "error")
	}

	return attribute.String("outcome", "ok")
}

// RecordDispatch counts one orchestrator dispatch.
func (i *Instruments) RecordDispatch(ctx context.Context, agent string, err error) {
	if i == nil {
		return
	}

	i.dispatches.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent), outcome(err)))
	i.RecordError(ctx, err, "orchestrator")
}

// RecordToolCall counts one tool invocation.
func (i *Instruments) RecordToolCall(ctx context.Context, agent, tool string, err error) {
	if i == nil {
		return
	}

	i.toolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("tool", tool),
		outcome(err),
	))
}

// RecordRounds records the tool rounds of one generation.
func (i *Instruments) RecordRounds(ctx context.Context, agent string, rounds int) {
	if i == nil {
		return
	}

	i.rounds.Record(ctx, int64(rounds), metric.WithAttributes(attribute.String("agent", agent)))
}

// RecordStage records the latency and outcome of one workflow stage.
func (i *Instruments) RecordStage(ctx context.Context, workflow, stage string, d time.Duration, err error) {
	if i == nil {
		return
	}

	i.stageDuration.Record(ctx, float64(d.Microseconds())/1000, metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("stage", stage),
		outcome(err),
	))
}

// RecordError counts err by its code. Nil errors are ignored.
func (i *Instruments) RecordError(ctx context.Context, err error, component string) {
	if i == nil || err == nil {
		return
	}

	code := string(core.CodeOf(err))
	if code == "" {
		code = "UNKNOWN"
	}

	i.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error.code", code),
		attribute.String("component", component),
	))
}
