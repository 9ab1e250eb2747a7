package transit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/transit"
	"github.com/aretw0/transit/pkg/adapters/memory"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOrchestrator_MetricsAndHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	loader := memory.NewLoader()
	loader.FailLoad("broken", errors.New("missing bundle"))

	var completes int
	orch, err := transit.New(loader,
		transit.WithMetrics(reg),
		transit.WithLifecycleHooks(domain.LifecycleHooks{
			OnStatus: func(_ context.Context, e *domain.StatusEvent) {
				if e.Status == domain.StatusComplete {
					completes++
				}
			},
		}),
	)
	require.NoError(t, err)

	require.NoError(t, orch.Run(context.Background(), transit.Request{Destination: "menu"}))
	err = orch.Run(context.Background(), transit.Request{
		Destination: "broken",
		Fallback:    domain.FallbackOptions{Enabled: true, Destination: "menu"},
	})

	var terr *domain.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Recovered())
	assert.Equal(t, 2, completes)

	assert.Equal(t, 3, testutil.CollectAndCount(reg, "transit_transitions_total"))
	expected := `
# HELP transit_failures_total Failed transitions by classified kind.
# TYPE transit_failures_total counter
transit_failures_total{kind="load_failure"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "transit_failures_total"))
}

func TestOrchestrator_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	orch, err := transit.New(memory.NewLoader(), transit.WithTracerProvider(tp))
	require.NoError(t, err)
	require.NoError(t, orch.Run(context.Background(), transit.Request{Destination: "menu"}))

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "transit.step.load")
	assert.Contains(t, names, "transit.step.activate")
}

func TestOrchestrator_GatesAndActive(t *testing.T) {
	loader := memory.NewLoader()
	orch, err := transit.New(loader, transit.WithInitialContent(loader.Preload("boot")...))
	require.NoError(t, err)

	orch.Gates().Hold(domain.GateAfterUnload)
	assert.Equal(t, []domain.GateID{domain.GateAfterUnload}, orch.Gates().Held())
	orch.Gates().Release(domain.GateAfterUnload)

	require.NoError(t, orch.Run(context.Background(), transit.Request{Destination: "menu", Keep: []string{"boot"}}))
	assert.ElementsMatch(t, []string{"boot", "menu"}, orch.Active())
	assert.Equal(t, domain.StatusComplete, orch.Status().Status)
}

func TestNew_RequiresLoader(t *testing.T) {
	_, err := transit.New(nil)
	assert.Error(t, err)
}
