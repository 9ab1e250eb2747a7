// Package pipeline runs the ordered, cancellable stages of one transition.
//
// Steps share a single Context and run strictly in order. The first error
// aborts the remaining steps and is returned unmodified; retrying is a
// whole-run concern owned by the orchestrator.
package pipeline

import (
	"context"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/aretw0/transit/pkg/pipeline"

// Step is one asynchronous stage of a transition.
type Step interface {
	Name() string
	Execute(ctx context.Context, tc *Context) error
}

type funcStep struct {
	name string
	fn   func(context.Context, *Context) error
}

func (s funcStep) Name() string { return s.name }

func (s funcStep) Execute(ctx context.Context, tc *Context) error { return s.fn(ctx, tc) }

// Func adapts a function into a Step.
func Func(name string, fn func(context.Context, *Context) error) Step {
	return funcStep{name: name, fn: fn}
}

// Pipeline is an ordered list of steps.
type Pipeline struct {
	steps  []Step
	hooks  domain.LifecycleHooks
	tracer trace.Tracer
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLifecycleHooks registers step start/end observers.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) { p.hooks = hooks }
}

// WithTracerProvider sets where step spans are recorded. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(instrumentationName) }
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{tracer: otel.Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add appends a step and returns the pipeline for chaining.
func (p *Pipeline) Add(s Step) *Pipeline {
	p.steps = append(p.steps, s)
	return p
}

// Names lists the step names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}

// Run executes the steps in order. It stops at the first error or cancellation
// and records the failing step on tc.
func (p *Pipeline) Run(ctx context.Context, tc *Context) error {
	for _, s := range p.steps {
		if err := ctx.Err(); err != nil {
			tc.FailedStep = s.Name()
			return err
		}
		if err := p.runStep(ctx, tc, s); err != nil {
			tc.FailedStep = s.Name()
			return err
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, tc *Context, s Step) error {
	ctx, span := p.tracer.Start(ctx, "transit.step."+s.Name(),
		trace.WithAttributes(
			attribute.String("transit.run_id", tc.RunID),
			attribute.String("transit.destination", tc.Request.Destination),
		),
	)
	defer span.End()

	if p.hooks.OnStepStart != nil {
		p.hooks.OnStepStart(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepStart, RunID: tc.RunID},
			Step:      s.Name(),
		})
	}

	start := time.Now()
	err := s.Execute(ctx, tc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if p.hooks.OnStepEnd != nil {
		p.hooks.OnStepEnd(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: tc.RunID},
			Step:      s.Name(),
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	tc.Log().Debug("step finished", "step", s.Name(), "duration", time.Since(start), "err", err)
	return err
}
