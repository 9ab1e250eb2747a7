package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordStep(name string, trail *[]string, err error) pipeline.Step {
	return pipeline.Func(name, func(ctx context.Context, tc *pipeline.Context) error {
		*trail = append(*trail, name)
		return err
	})
}

func TestPipeline_RunsInOrder(t *testing.T) {
	var trail []string
	p := pipeline.New().
		Add(recordStep("a", &trail, nil)).
		Add(recordStep("b", &trail, nil)).
		Add(recordStep("c", &trail, nil))

	require.NoError(t, p.Run(context.Background(), &pipeline.Context{}))
	assert.Equal(t, []string{"a", "b", "c"}, trail)
	assert.Equal(t, []string{"a", "b", "c"}, p.Names())
}

func TestPipeline_ErrorAbortsRemainingSteps(t *testing.T) {
	var trail []string
	boom := errors.New("boom")
	p := pipeline.New().
		Add(recordStep("a", &trail, nil)).
		Add(recordStep("b", &trail, boom)).
		Add(recordStep("c", &trail, nil))

	tc := &pipeline.Context{}
	err := p.Run(context.Background(), tc)

	assert.Same(t, boom, err, "errors bubble unmodified")
	assert.Equal(t, []string{"a", "b"}, trail)
	assert.Equal(t, "b", tc.FailedStep)
}

func TestPipeline_StopsWhenCancelled(t *testing.T) {
	var trail []string
	ctx, cancel := context.WithCancel(context.Background())
	p := pipeline.New().
		Add(pipeline.Func("a", func(context.Context, *pipeline.Context) error {
			trail = append(trail, "a")
			cancel()
			return nil
		})).
		Add(recordStep("b", &trail, nil))

	tc := &pipeline.Context{}
	err := p.Run(ctx, tc)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, trail)
	assert.Equal(t, "b", tc.FailedStep)
}

func TestPipeline_LifecycleHooks(t *testing.T) {
	var started, ended []string
	var endErr error
	boom := errors.New("boom")

	p := pipeline.New(pipeline.WithLifecycleHooks(domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) { started = append(started, e.Step) },
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			ended = append(ended, e.Step)
			endErr = e.Err
			assert.Equal(t, "run-1", e.RunID)
		},
	}))
	var trail []string
	p.Add(recordStep("a", &trail, nil)).Add(recordStep("b", &trail, boom))

	_ = p.Run(context.Background(), &pipeline.Context{RunID: "run-1"})

	assert.Equal(t, []string{"a", "b"}, started)
	assert.Equal(t, []string{"a", "b"}, ended)
	assert.Same(t, boom, endErr)
}

func TestPipeline_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var trail []string
	p := pipeline.New(pipeline.WithTracerProvider(tp)).
		Add(recordStep("unload", &trail, nil)).
		Add(recordStep("load", &trail, errors.New("missing bundle")))

	_ = p.Run(context.Background(), &pipeline.Context{RunID: "r", Request: domain.Request{Destination: "B"}})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "transit.step.unload", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "transit.step.load", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
