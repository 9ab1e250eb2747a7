package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStatus    EventType = "status"
	EventStepStart EventType = "step_start"
	EventStepEnd   EventType = "step_end"
	EventFailure   EventType = "failure"
	EventFallback  EventType = "fallback"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// StatusEvent is emitted every time the orchestrator changes state.
// Failure is set only when Status is StatusFailed.
type StatusEvent struct {
	EventBase
	Status      Status       `json:"status"`
	Destination string       `json:"destination"`
	Fallback    bool         `json:"fallback,omitempty"`
	Failure     *FailureInfo `json:"failure,omitempty"`
}

// StepEvent represents the start or end of a pipeline step.
type StepEvent struct {
	EventBase
	Step     string        `json:"step"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// FallbackEvent is emitted when a failed run hands over to its fallback destination.
type FallbackEvent struct {
	EventBase
	From Request     `json:"-"`
	To   Request     `json:"-"`
	Kind FailureKind `json:"kind"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnStatus    func(context.Context, *StatusEvent)
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
	OnFailure   func(context.Context, *StatusEvent)
	OnFallback  func(context.Context, *FallbackEvent)
}

// MergeHooks combines several hook sets; callbacks run in argument order.
func MergeHooks(sets ...LifecycleHooks) LifecycleHooks {
	var merged LifecycleHooks
	for _, h := range sets {
		merged.OnStatus = chain(merged.OnStatus, h.OnStatus)
		merged.OnStepStart = chain(merged.OnStepStart, h.OnStepStart)
		merged.OnStepEnd = chain(merged.OnStepEnd, h.OnStepEnd)
		merged.OnFailure = chain(merged.OnFailure, h.OnFailure)
		merged.OnFallback = chain(merged.OnFallback, h.OnFallback)
	}
	return merged
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
