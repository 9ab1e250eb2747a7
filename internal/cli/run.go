package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/transit/internal/config"
	"github.com/aretw0/transit/pkg/domain"
)

// Failure modes accepted by --fail.
const (
	FailNone     = ""
	FailLoad     = "load"
	FailCache    = "cache"
	FailRejected = "rejected"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	ConfigPath string
	Target     string // preset name or destination
	Fail       string
	GateDelay  time.Duration
	Timeout    time.Duration // activation gate timeout
	Fallback   string
	Retry      bool
	Steps      int
	StepDelay  time.Duration
	From       []string
	JSON       bool
	Debug      bool
}

// Result is what `transit run --json` prints.
type Result struct {
	Snapshot domain.Snapshot `json:"snapshot"`
	Active   []string        `json:"active"`
	Retried  bool            `json:"retried,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// resolveRequest treats target as a preset name first, then as a destination.
func resolveRequest(cfg config.Config, opts RunOptions) (domain.Request, error) {
	req, err := cfg.Preset(opts.Target)
	switch {
	case errors.Is(err, config.ErrUnknownPreset):
		req = domain.Request{Destination: opts.Target}
	case err != nil:
		return req, err
	}
	if opts.Timeout > 0 {
		req.ActivationTimeout = opts.Timeout
	}
	if opts.Fallback != "" {
		req.Fallback.Enabled = true
		req.Fallback.Destination = opts.Fallback
	}
	return req, req.Validate()
}

func injectedError(mode string) (error, error) {
	switch mode {
	case FailNone:
		return nil, nil
	case FailLoad:
		return errors.New("simulated load failure"), nil
	case FailCache:
		return fmt.Errorf("simulated: %w", domain.ErrCacheCorrupt), nil
	case FailRejected:
		return fmt.Errorf("simulated: %w", domain.ErrServerRejected), nil
	}
	return nil, fmt.Errorf("unknown --fail mode %q (want load, cache or rejected)", mode)
}

// Execute simulates one transition with in-memory content and a terminal presenter.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	req, err := resolveRequest(cfg, opts)
	if err != nil {
		return err
	}
	injected, err := injectedError(opts.Fail)
	if err != nil {
		return err
	}
	logger, err := createLogger(cfg, opts.Debug, opts.JSON)
	if err != nil {
		return err
	}

	// Presentation goes to stdout only in text mode.
	view := out
	if opts.JSON {
		view = io.Discard
	}
	stack, err := createStack(cfg, Simulation{Steps: opts.Steps, StepDelay: opts.StepDelay, Initial: opts.From}, view, logger, opts.Debug)
	if err != nil {
		return err
	}
	defer stack.Close()

	if injected != nil {
		stack.Loader.FailLoad(req.Destination, injected)
	}
	if opts.GateDelay > 0 {
		holdGate(ctx, stack, domain.GateBeforeActivation, opts.GateDelay, view)
	}

	printSystemMessage(view, "Transition to %q", req.Destination)
	runErr := stack.Orchestrator.Run(ctx, req)

	result := Result{}
	if runErr != nil && opts.Retry {
		runErr = retry(ctx, stack, req, runErr, view)
		result.Retried = true
	}

	result.Snapshot = stack.Orchestrator.Status()
	result.Active = stack.Orchestrator.Active()
	if runErr != nil {
		result.Error = runErr.Error()
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printSummary(view, result)
	}
	return runErr
}

// holdGate holds id now and releases it after delay, like a server would.
func holdGate(ctx context.Context, stack *Stack, id domain.GateID, delay time.Duration, out io.Writer) {
	stack.Gates.Hold(id)
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			printSystemMessage(out, "Server released %s", id)
			stack.Gates.Release(id)
		case <-ctx.Done():
		}
	}()
}

// retry heals the injected failure and applies the recovery the policy offers.
func retry(ctx context.Context, stack *Stack, req domain.Request, runErr error, out io.Writer) error {
	var terr *domain.TransitionError
	if !errors.As(runErr, &terr) || terr.Recovered() {
		return runErr
	}
	stack.Loader.FailLoad(req.Destination, nil)

	info := stack.Orchestrator.Status().Failure
	switch {
	case info != nil && info.CanClearCache:
		printSystemMessage(out, "Clearing cache and retrying (%s)", terr.Kind)
		return stack.Orchestrator.ClearCacheAndRetry(ctx)
	case info != nil && info.CanRetry:
		printSystemMessage(out, "Retrying (%s)", terr.Kind)
		return stack.Orchestrator.Retry(ctx)
	}
	printSystemMessage(out, "Policy for %s offers no retry", terr.Kind)
	return runErr
}

func printSummary(out io.Writer, r Result) {
	snap := r.Snapshot
	switch {
	case snap.Status == domain.StatusComplete && snap.Fallback:
		printSystemMessage(out, "Fell back to %q", snap.Destination)
	case snap.Status == domain.StatusComplete:
		printSystemMessage(out, "Arrived at %q", snap.Destination)
	default:
		printSystemMessage(out, "Transition %s", snap.Status)
	}
	if f := snap.Failure; f != nil {
		printSystemMessage(out, "Failure: %s (%s) retry=%t clear_cache=%t", f.Kind, f.MessageKey, f.CanRetry, f.CanClearCache)
	}
	printSystemMessage(out, "Active content: %v", r.Active)
}
