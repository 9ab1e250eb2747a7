package runtime

import (
	"context"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/pipeline"
)

// fail moves a run into the Failed state: forced cleanup, classification,
// status emission and, when the policy and request allow it, one fallback run.
func (o *Orchestrator) fail(ctx context.Context, tc *pipeline.Context, cause error) error {
	log := tc.Log()

	// Cleanup must finish even when the run itself was cancelled.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cleanupTimeout)
	_ = pipeline.Cleanup{}.Execute(cleanupCtx, tc)
	cancel()

	o.mu.Lock()
	o.active = tc.Active()
	o.mu.Unlock()

	kind := domain.Classify(cause)
	policy := domain.PolicyFor(kind)
	info := &domain.FailureInfo{
		Kind:          kind,
		MessageKey:    policy.MessageKey,
		CanRetry:      policy.SuggestRetry,
		CanClearCache: policy.SuggestCacheClear && o.cache != nil,
		Error:         cause.Error(),
	}
	log.WarnContext(ctx, "transition failed",
		"kind", kind,
		"step", tc.FailedStep,
		"restored", tc.Cleanup.RestorePrevious(),
		"err", cause,
	)
	o.setStatus(ctx, tc, domain.StatusFailed, info)

	terr := &domain.TransitionError{
		RunID:       tc.RunID,
		Destination: tc.Request.Destination,
		Kind:        kind,
		Policy:      policy,
		Err:         cause,
	}

	if !policy.DoFallback || !tc.Request.CanFallback() {
		return terr
	}
	if !o.fallbackActive.CompareAndSwap(false, true) {
		log.WarnContext(ctx, "fallback already in progress, not starting another")
		return terr
	}
	defer o.fallbackActive.Store(false)

	fb := tc.Request.FallbackRequest()
	if o.hooks.OnFallback != nil {
		o.hooks.OnFallback(ctx, &domain.FallbackEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventFallback, RunID: tc.RunID},
			From:      tc.Request,
			To:        fb,
			Kind:      kind,
		})
	}
	log.InfoContext(ctx, "starting fallback transition", "fallback_destination", fb.Destination)

	terr.FallbackAttempted = true
	terr.FallbackErr = o.execute(ctx, fb, true)
	return terr
}
