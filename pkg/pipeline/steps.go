package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/ports"
)

// BlockInput disables user input for the rest of the run.
type BlockInput struct{}

func (BlockInput) Name() string { return "block_input" }

func (BlockInput) Execute(_ context.Context, tc *Context) error {
	if tc.Input != nil {
		tc.Input.Block()
	}
	tc.Cleanup.InputBlocked = true
	return nil
}

// UnblockInput re-enables user input.
type UnblockInput struct{}

func (UnblockInput) Name() string { return "unblock_input" }

func (UnblockInput) Execute(_ context.Context, tc *Context) error {
	if tc.Input != nil && tc.Cleanup.InputBlocked {
		tc.Input.Unblock()
	}
	tc.Cleanup.InputBlocked = false
	return nil
}

// MarkStatus reports a status without doing any work.
type MarkStatus struct {
	Status domain.Status
}

func (s MarkStatus) Name() string { return "status." + string(s.Status) }

func (s MarkStatus) Execute(_ context.Context, tc *Context) error {
	tc.Emit(s.Status)
	return nil
}

// ShowLoading starts the progress hub and brings up the selected loading presenter, if any.
type ShowLoading struct{}

func (ShowLoading) Name() string { return "show_loading" }

func (ShowLoading) Execute(_ context.Context, tc *Context) error {
	if tc.Progress != nil {
		tc.Progress.SetPresenter(tc.Presenter)
		tc.Progress.Begin()
	}
	if tc.Presenter == nil {
		return nil
	}
	tc.Presenter.Show(tc.Request.LoadingKey)
	tc.Cleanup.LoadingShown = true
	return nil
}

// HideLoading fills the bar, waits for it to look full, then hides the presenter
// and stops the hub. The bar is filled even when no presenter is shown.
type HideLoading struct{}

func (HideLoading) Name() string { return "hide_loading" }

func (HideLoading) Execute(ctx context.Context, tc *Context) error {
	if tc.Progress != nil {
		tc.Progress.Complete()
		if err := tc.Progress.WaitUntilFilled(ctx); err != nil {
			return err
		}
	}
	hideLoading(tc)
	return nil
}

func hideLoading(tc *Context) {
	if tc.Cleanup.LoadingShown {
		tc.Presenter.Hide()
		tc.Cleanup.LoadingShown = false
	}
	if tc.Progress != nil {
		tc.Progress.SetPresenter(nil)
		tc.Progress.Stop()
	}
}

// Delay reports Status, then waits for Duration.
type Delay struct {
	Duration time.Duration
	Status   domain.Status
}

func (d Delay) Name() string { return "delay." + string(d.Status) }

func (d Delay) Execute(ctx context.Context, tc *Context) error {
	tc.Emit(d.Status)
	return sleep(ctx, d.Duration)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FadeIn raises the cover over the current content.
type FadeIn struct {
	Status domain.Status
}

func (FadeIn) Name() string { return "fade_in" }

func (f FadeIn) Execute(ctx context.Context, tc *Context) error {
	tc.Emit(f.Status)
	if tc.Fader == nil {
		return nil
	}
	// Mark before the call: a cancelled fade may leave the cover half up.
	tc.Cleanup.Faded = true
	return tc.Fader.FadeIn(ctx, tc.Request.FadeIn)
}

// FadeOut removes the cover.
type FadeOut struct {
	Status domain.Status
}

func (FadeOut) Name() string { return "fade_out" }

func (f FadeOut) Execute(ctx context.Context, tc *Context) error {
	tc.Emit(f.Status)
	if tc.Fader == nil || !tc.Cleanup.Faded {
		return nil
	}
	if err := tc.Fader.FadeOut(ctx, tc.Request.FadeOut); err != nil {
		return err
	}
	tc.Cleanup.Faded = false
	return nil
}

// StashSpill moves spawned objects into the holding container before the cut.
type StashSpill struct{}

func (StashSpill) Name() string { return "anti_spill.stash" }

func (StashSpill) Execute(ctx context.Context, tc *Context) error {
	if tc.Spill == nil {
		return nil
	}
	if err := tc.Spill.Stash(ctx); err != nil {
		return err
	}
	tc.Cleanup.Stashed = true
	return nil
}

// FlushSpill returns stashed objects into the new content, or discards them
// when the request asks for it.
type FlushSpill struct{}

func (FlushSpill) Name() string { return "anti_spill.flush" }

func (FlushSpill) Execute(ctx context.Context, tc *Context) error {
	if tc.Spill == nil || !tc.Cleanup.Stashed {
		return nil
	}
	var err error
	if tc.Request.DiscardSpilled {
		err = tc.Spill.Discard(ctx)
	} else {
		err = tc.Spill.Flush(ctx)
	}
	if err != nil {
		return err
	}
	tc.Cleanup.Stashed = false
	return nil
}

// Unload removes previous content, except what the request keeps.
// Additive requests unload nothing.
type Unload struct {
	Status domain.Status
}

func (Unload) Name() string { return "unload" }

func (u Unload) Execute(ctx context.Context, tc *Context) error {
	tc.Emit(u.Status)
	if tc.Request.Additive {
		return nil
	}
	for _, h := range tc.Previous {
		if tc.Request.Keeps(h.Ref()) {
			continue
		}
		if err := tc.Loader.Unload(ctx, h); err != nil {
			return err
		}
		tc.Cleanup.Unloaded = append(tc.Cleanup.Unloaded, h)
	}
	return nil
}

// WaitGate pauses until an external party releases Gate.
// A positive Timeout races the wait against a timer. Server gates turn a
// timeout into a *domain.ServerTimeoutError.
type WaitGate struct {
	Gate    domain.GateID
	Timeout time.Duration
	Server  bool
	Status  domain.Status
	Message string
}

func (w WaitGate) Name() string {
	if w.Timeout > 0 {
		return "wait_gate_timed." + w.Gate.String()
	}
	return "wait_gate." + w.Gate.String()
}

func (w WaitGate) Execute(ctx context.Context, tc *Context) error {
	tc.Emit(w.Status)
	if tc.Gates == nil {
		return nil
	}
	if tc.Progress != nil {
		tc.Progress.SetMessage(w.Message)
	}
	if w.Timeout <= 0 {
		return tc.Gates.Wait(ctx, w.Gate)
	}

	err := tc.Gates.WaitWithTimeout(ctx, w.Gate, w.Timeout)
	var te *gate.TimeoutError
	if w.Server && errors.As(err, &te) {
		return &domain.ServerTimeoutError{Gate: w.Gate, Duration: w.Timeout, Err: err}
	}
	return err
}

// Load brings in the destination content, reporting progress into Range.
type Load struct {
	Min, Max float64
}

func (Load) Name() string { return "load" }

func (l Load) Execute(ctx context.Context, tc *Context) error {
	report := func(float64) {}
	if tc.Progress != nil {
		tc.Progress.SetMessage(domain.MessageLoading)
		release := tc.Progress.PushRange(l.Min, l.Max)
		defer release()
		report = tc.Progress.ReportRealtime01
	}

	opts := ports.LoadOptions{Additive: tc.Request.Additive, Params: tc.Request.Params}
	h, err := tc.Loader.Load(ctx, tc.Request.Destination, opts, report)
	if err != nil {
		return &domain.LoadError{Ref: tc.Request.Destination, Err: err}
	}
	tc.Cleanup.Loaded = append(tc.Cleanup.Loaded, h)
	report(1)
	return nil
}

// Activate makes the loaded content live, then reports Status.
type Activate struct {
	Status domain.Status
}

func (Activate) Name() string { return "activate" }

func (a Activate) Execute(ctx context.Context, tc *Context) error {
	if tc.Progress != nil {
		tc.Progress.SetMessage(domain.MessageActivating)
	}
	for _, h := range tc.Cleanup.Loaded {
		if err := h.Activate(ctx); err != nil {
			return err
		}
	}
	tc.Cleanup.Activated = true
	tc.Emit(a.Status)
	return nil
}
