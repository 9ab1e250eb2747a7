package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnStatus(ctx, &domain.StatusEvent{Status: domain.StatusLoadStarted})
	hooks.OnStatus(ctx, &domain.StatusEvent{Status: domain.StatusComplete})
	hooks.OnStatus(ctx, &domain.StatusEvent{Status: domain.StatusComplete, Fallback: true})
	hooks.OnFailure(ctx, &domain.StatusEvent{
		Status:  domain.StatusFailed,
		Failure: &domain.FailureInfo{Kind: domain.FailureLoad},
	})
	hooks.OnFallback(ctx, &domain.FallbackEvent{Kind: domain.FailureLoad})
	hooks.OnStepEnd(ctx, &domain.StepEvent{Step: "load", Duration: 20 * time.Millisecond})
	hooks.OnStepEnd(ctx, &domain.StepEvent{Step: "load", Duration: time.Millisecond, Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("complete", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("complete", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("failed", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("load_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("load_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepErrors.WithLabelValues("load")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StepDuration))
}

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	second.Hooks().OnFallback(context.Background(), &domain.FallbackEvent{Kind: domain.FailureUnknown})
	assert.Equal(t, 1.0, testutil.ToFloat64(first.Fallbacks.WithLabelValues("unknown")))
}

func TestMetrics_NilRegisterer(t *testing.T) {
	m, err := observability.NewMetrics(nil)
	require.NoError(t, err)
	m.Hooks().OnFailure(context.Background(), &domain.StatusEvent{Status: domain.StatusFailed})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("unknown")))
}
