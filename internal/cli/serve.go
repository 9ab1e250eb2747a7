package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/transit/internal/config"
	httpAdapter "github.com/aretw0/transit/pkg/adapters/http"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures the Serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string
	From       []string
	StepDelay  time.Duration
	Debug      bool
	JSON       bool
}

// Serve exposes an orchestrator over HTTP until ctx is cancelled.
// When listener is nil it listens on the configured address.
func Serve(ctx context.Context, opts ServeOptions, listener net.Listener, out io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}
	logger, err := createLogger(cfg, opts.Debug, opts.JSON)
	if err != nil {
		return err
	}

	// The server has no terminal of its own; presentation output is dropped.
	stack, err := createStack(cfg, Simulation{StepDelay: opts.StepDelay, Initial: opts.From}, io.Discard, logger, opts.Debug)
	if err != nil {
		return err
	}
	defer stack.Close()

	if stack.Bridge != nil {
		go func() {
			if err := stack.Bridge.Run(ctx); err != nil {
				logger.Error("gate bridge stopped", "err", err)
			}
		}()
	}

	if listener == nil {
		listener, err = net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
		}
	}

	srv := &http.Server{
		Handler: httpAdapter.NewHandler(stack.Orchestrator,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithGatherer(stack.Registry),
			httpAdapter.WithRateLimit(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateBurst),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Starting Transit Server on %s", listener.Addr())
		serverErrors <- srv.Serve(listener)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(out, "Shutting down...")
		stack.Orchestrator.CancelCurrent()

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		printSystemMessage(out, "Transit Server stopped gracefully")
		return nil
	}
}
