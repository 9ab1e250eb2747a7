package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/transit/pkg/domain"
)

// ClearCacheAndRetry invalidates the content cache according to the last
// request's mode and runs it again. A failing narrow clear escalates to a
// full clear; only a failing full clear aborts the retry.
func (o *Orchestrator) ClearCacheAndRetry(ctx context.Context) error {
	if o.cache == nil {
		return domain.ErrNoCache
	}
	o.mu.Lock()
	last := o.lastRequest
	o.mu.Unlock()
	if last == nil {
		return domain.ErrNothingToRetry
	}

	if err := o.clearCache(ctx, *last); err != nil {
		return fmt.Errorf("failed to clear content cache: %w", err)
	}
	return o.Retry(ctx)
}

func (o *Orchestrator) clearCache(ctx context.Context, req domain.Request) error {
	var err error
	switch req.CacheClear {
	case domain.CacheClearDependencies:
		err = o.cache.ClearByKey(ctx, req.Destination)
	case domain.CacheClearDependenciesThenClean:
		if err = o.cache.ClearByKey(ctx, req.Destination); err == nil {
			err = o.cache.CleanUnused(ctx)
		}
	default:
		return o.cache.ClearAll(ctx)
	}
	if err != nil {
		o.logger.WarnContext(ctx, "narrow cache clear failed, clearing everything",
			"mode", req.CacheClear,
			"destination", req.Destination,
			"err", err,
		)
		return o.cache.ClearAll(ctx)
	}
	return nil
}
