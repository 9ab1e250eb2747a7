package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/aretw0/transit/internal/config"
	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/domain"
)

// SignalContext is cancelled on SIGINT or SIGTERM and remembers which one arrived,
// so commands can report the interruption after unwinding.
type SignalContext struct {
	context.Context
	Cancel context.CancelFunc
	sig    atomic.Value // os.Signal
}

// NewSignalContext derives a SignalContext from parent. Call Cancel to release
// the signal subscription.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{Context: ctx, Cancel: cancel}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(ch)
		select {
		case sig := <-ch:
			sc.sig.Store(sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return sc
}

// Signal returns the signal that cancelled the context, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sig, _ := sc.sig.Load().(os.Signal)
	return sig
}

func createLogger(cfg config.Config, debug, asJSON bool) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWithWriter(os.Stderr, level, asJSON), nil
}

// createDebugHooks logs every step and fallback at debug level.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step Start", "run_id", e.RunID, "step", e.Step)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			if e.Err != nil {
				logger.Debug("Step End (Error)", "run_id", e.RunID, "step", e.Step, "duration", e.Duration, "err", e.Err)
			} else {
				logger.Debug("Step End", "run_id", e.RunID, "step", e.Step, "duration", e.Duration)
			}
		},
		OnFallback: func(ctx context.Context, e *domain.FallbackEvent) {
			logger.Debug("Fallback", "run_id", e.RunID, "from", e.From.Destination, "to", e.To.Destination, "kind", e.Kind)
		},
	}
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
