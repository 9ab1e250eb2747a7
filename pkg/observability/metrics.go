package observability

import (
	"context"
	"errors"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "transit"

// Metrics holds the transition collectors.
type Metrics struct {
	Transitions  *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	Fallbacks    *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
	StepErrors   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered on reg are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Finished transitions by outcome.",
			},
			[]string{"outcome", "fallback"},
		),
		Failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed transitions by classified kind.",
			},
			[]string{"kind"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fallbacks_total",
				Help:      "Fallback transitions started, by the kind that triggered them.",
			},
			[]string{"kind"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps.",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"step"},
		),
		StepErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_errors_total",
				Help:      "Pipeline steps that returned an error.",
			},
			[]string{"step"},
		),
	}

	if reg == nil {
		return m, nil
	}
	var err error
	if m.Transitions, err = register(reg, m.Transitions); err != nil {
		return nil, err
	}
	if m.Failures, err = register(reg, m.Failures); err != nil {
		return nil, err
	}
	if m.Fallbacks, err = register(reg, m.Fallbacks); err != nil {
		return nil, err
	}
	if m.StepDuration, err = register(reg, m.StepDuration); err != nil {
		return nil, err
	}
	if m.StepErrors, err = register(reg, m.StepErrors); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStatus: func(_ context.Context, e *domain.StatusEvent) {
			if e.Status != domain.StatusComplete {
				return
			}
			m.Transitions.WithLabelValues("complete", boolLabel(e.Fallback)).Inc()
		},
		OnFailure: func(_ context.Context, e *domain.StatusEvent) {
			m.Transitions.WithLabelValues("failed", boolLabel(e.Fallback)).Inc()
			kind := domain.FailureUnknown
			if e.Failure != nil {
				kind = e.Failure.Kind
			}
			m.Failures.WithLabelValues(string(kind)).Inc()
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			m.StepDuration.WithLabelValues(e.Step).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.StepErrors.WithLabelValues(e.Step).Inc()
			}
		},
		OnFallback: func(_ context.Context, e *domain.FallbackEvent) {
			m.Fallbacks.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
