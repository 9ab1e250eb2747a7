package domain

import (
	"context"
	"errors"
)

// FailureKind is the closed set of failure categories the orchestrator reacts to.
type FailureKind string

const (
	FailureTimeout        FailureKind = "timeout"
	FailureLoad           FailureKind = "load_failure"
	FailureServerRejected FailureKind = "server_rejected"
	FailureServerTimeout  FailureKind = "server_timeout"
	FailureCacheCorrupt   FailureKind = "cache_corrupt"
	FailureCancelled      FailureKind = "cancelled"
	FailureUnknown        FailureKind = "unknown"
)

// Policy is the static recommendation attached to a failure kind.
type Policy struct {
	SuggestRetry      bool   `json:"suggest_retry" yaml:"suggest_retry"`
	SuggestCacheClear bool   `json:"suggest_cache_clear" yaml:"suggest_cache_clear"`
	DoFallback        bool   `json:"do_fallback" yaml:"do_fallback"`
	MessageKey        string `json:"message_key" yaml:"message_key"`
}

var policyTable = map[FailureKind]Policy{
	FailureTimeout:        {SuggestRetry: true, MessageKey: "transition.error.timeout"},
	FailureLoad:           {SuggestRetry: true, SuggestCacheClear: true, DoFallback: true, MessageKey: "transition.error.load_failed"},
	FailureServerRejected: {DoFallback: true, MessageKey: "transition.error.server_rejected"},
	FailureServerTimeout:  {SuggestRetry: true, DoFallback: true, MessageKey: "transition.error.server_timeout"},
	FailureCacheCorrupt:   {SuggestRetry: true, SuggestCacheClear: true, MessageKey: "transition.error.cache_corrupt"},
	FailureCancelled:      {MessageKey: "transition.cancelled"},
	FailureUnknown:        {SuggestRetry: true, DoFallback: true, MessageKey: "transition.error.unknown"},
}

// FailureKinds lists every kind in a stable order.
var FailureKinds = []FailureKind{
	FailureTimeout,
	FailureLoad,
	FailureServerRejected,
	FailureServerTimeout,
	FailureCacheCorrupt,
	FailureCancelled,
	FailureUnknown,
}

// PolicyFor looks up the policy for kind. Kinds outside the table get the Unknown policy.
func PolicyFor(kind FailureKind) Policy {
	if p, ok := policyTable[kind]; ok {
		return p
	}
	return policyTable[FailureUnknown]
}

// timeoutError matches any error that reports itself as a timeout (gate waits, net errors).
type timeoutError interface {
	Timeout() bool
}

// Classify maps an error to its failure kind by identity, never by message text.
// Cancellation wins over everything else so a cancelled load is never retried as a load failure.
func Classify(err error) FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return FailureCancelled
	}
	if errors.Is(err, ErrCacheCorrupt) {
		return FailureCacheCorrupt
	}
	if errors.Is(err, ErrServerRejected) {
		return FailureServerRejected
	}
	var serverTimeout *ServerTimeoutError
	if errors.As(err, &serverTimeout) {
		return FailureServerTimeout
	}
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return FailureTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return FailureLoad
	}
	return FailureUnknown
}
