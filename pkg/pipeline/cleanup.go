package pipeline

import (
	"context"
	"slices"

	"github.com/aretw0/transit/pkg/ports"
)

// Cleanup unwinds a failed run in reverse order: drop new content, reload what
// was unloaded, return stashed objects, hide loading, lift the cover, unblock
// input. It is forced and best-effort: every secondary error is logged and
// swallowed so one broken collaborator cannot strand the rest.
type Cleanup struct{}

func (Cleanup) Name() string { return "cleanup" }

func (Cleanup) Execute(ctx context.Context, tc *Context) error {
	log := tc.Log()
	plan := &tc.Cleanup

	loaded := slices.Clone(plan.Loaded)
	slices.Reverse(loaded)
	plan.Loaded = nil
	for _, h := range loaded {
		if err := tc.Loader.Unload(ctx, h); err != nil {
			log.Warn("cleanup: failed to unload new content", "ref", h.Ref(), "err", err)
		}
	}
	plan.Activated = false

	for _, prev := range plan.Unloaded {
		h, err := tc.Loader.Load(ctx, prev.Ref(), ports.LoadOptions{Additive: true}, nil)
		if err != nil {
			log.Warn("cleanup: failed to reload previous content", "ref", prev.Ref(), "err", err)
			continue
		}
		if err := h.Activate(ctx); err != nil {
			log.Warn("cleanup: failed to activate previous content", "ref", prev.Ref(), "err", err)
		}
		plan.Restored = append(plan.Restored, h)
	}

	if plan.Stashed && tc.Spill != nil {
		if err := tc.Spill.Flush(ctx); err != nil {
			log.Warn("cleanup: failed to flush stashed objects", "err", err)
		}
		plan.Stashed = false
	}

	hideLoading(tc)

	if plan.Faded && tc.Fader != nil {
		if err := tc.Fader.FadeOut(ctx, tc.Request.FadeOut); err != nil {
			log.Warn("cleanup: failed to fade out", "err", err)
		}
		plan.Faded = false
	}

	if plan.InputBlocked {
		if tc.Input != nil {
			tc.Input.Unblock()
		}
		plan.InputBlocked = false
	}
	return nil
}
