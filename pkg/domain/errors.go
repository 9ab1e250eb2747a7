package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequest is returned when a Request fails validation.
	ErrInvalidRequest = errors.New("invalid transition request")

	// ErrNothingToRetry is returned by Retry before any run was started.
	ErrNothingToRetry = errors.New("no transition to retry")

	// ErrNoCache is returned by ClearCacheAndRetry when no content cache is configured.
	ErrNoCache = errors.New("no content cache configured")

	// ErrUnknownPresenter is returned when a request names an unregistered presenter.
	ErrUnknownPresenter = errors.New("unknown loading presenter")

	// ErrServerRejected is reported by collaborators when the server refuses the destination.
	ErrServerRejected = errors.New("server rejected transition")

	// ErrCacheCorrupt is reported by loaders when cached content fails integrity checks.
	ErrCacheCorrupt = errors.New("content cache corrupt")
)

// LoadError wraps a failure reported by the content loader.
type LoadError struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q failed: %v", e.Ref, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ServerTimeoutError marks a gate timeout that happened while waiting on the server.
type ServerTimeoutError struct {
	Gate     GateID
	Duration time.Duration
	Err      error
}

func (e *ServerTimeoutError) Error() string {
	return fmt.Sprintf("server did not release gate %q within %s", e.Gate, e.Duration)
}

func (e *ServerTimeoutError) Unwrap() error { return e.Err }

// TransitionError is returned by a failed run. It carries the classification
// and the policy the caller should act on.
type TransitionError struct {
	RunID       string
	Destination string
	Kind        FailureKind
	Policy      Policy
	Err         error

	// FallbackAttempted is set when a fallback run was started for this failure.
	FallbackAttempted bool
	// FallbackErr holds the fallback run's own failure, nil if it completed.
	FallbackErr error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("transition to %q failed (%s): %v", e.Destination, e.Kind, e.Err)
	if e.FallbackAttempted && e.FallbackErr != nil {
		msg += fmt.Sprintf("; fallback failed: %v", e.FallbackErr)
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Err }

// Recovered reports whether a fallback run completed after the failure.
func (e *TransitionError) Recovered() bool {
	return e.FallbackAttempted && e.FallbackErr == nil
}
