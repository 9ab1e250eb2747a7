package transit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/internal/runtime"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/observability"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/aretw0/transit/pkg/progress"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// Request describes one transition. See domain.Request.
type Request = domain.Request

// Orchestrator is the high-level entry point for the Transit library.
// It wraps the internal runtime and wires logging, hooks and metrics.
type Orchestrator struct {
	runtime *runtime.Orchestrator

	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	registerer  prometheus.Registerer
	runtimeOpts []runtime.Option
}

var _ ports.Controller = (*Orchestrator)(nil)

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls merge.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = domain.MergeHooks(o.hooks, hooks)
	}
}

// WithMetrics registers the transition collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) {
		o.registerer = reg
	}
}

// WithCache sets the content cache used by ClearCacheAndRetry.
func WithCache(cache ports.ContentCache) Option {
	return runtimeOption(runtime.WithCache(cache))
}

// WithInputBlocker sets the input blocker.
func WithInputBlocker(input ports.InputBlocker) Option {
	return runtimeOption(runtime.WithInputBlocker(input))
}

// WithFader sets the screen fader.
func WithFader(fader ports.Fader) Option {
	return runtimeOption(runtime.WithFader(fader))
}

// WithSpillContainer sets the container used by anti-spill requests.
func WithSpillContainer(spill ports.SpillContainer) Option {
	return runtimeOption(runtime.WithSpillContainer(spill))
}

// WithPresenter registers a loading presenter under key.
func WithPresenter(key string, p ports.LoadingPresenter) Option {
	return runtimeOption(runtime.WithPresenter(key, p))
}

// WithDefaultPresenter selects the presenter used when a request names none.
func WithDefaultPresenter(key string) Option {
	return runtimeOption(runtime.WithDefaultPresenter(key))
}

// WithGates shares a gate registry with external collaborators.
func WithGates(gates *gate.Registry[domain.GateID]) Option {
	return runtimeOption(runtime.WithGates(gates))
}

// WithProgressHub sets the progress hub.
func WithProgressHub(hub *progress.Hub) Option {
	return runtimeOption(runtime.WithProgressHub(hub))
}

// WithInitialContent declares the content live before the first run.
func WithInitialContent(handles ...ports.Handle) Option {
	return runtimeOption(runtime.WithInitialContent(handles...))
}

// WithTracerProvider records one span per pipeline step.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return runtimeOption(runtime.WithTracerProvider(tp))
}

// WithCleanupTimeout bounds the forced cleanup after a failure.
func WithCleanupTimeout(d time.Duration) Option {
	return runtimeOption(runtime.WithCleanupTimeout(d))
}

func runtimeOption(opt runtime.Option) Option {
	return func(o *Orchestrator) {
		o.runtimeOpts = append(o.runtimeOpts, opt)
	}
}

// New initializes an Orchestrator around loader.
func New(loader ports.ContentLoader, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}

	// Ensure logger is initialized (so we don't pass nil to runtime, which would overwrite its default)
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	if o.registerer != nil {
		m, err := observability.NewMetrics(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		o.hooks = domain.MergeHooks(o.hooks, m.Hooks())
	}

	runtimeOpts := []runtime.Option{
		runtime.WithLogger(o.logger),
		runtime.WithLifecycleHooks(o.hooks),
	}
	runtimeOpts = append(runtimeOpts, o.runtimeOpts...)

	rt, err := runtime.New(loader, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	o.runtime = rt
	return o, nil
}

// Run executes one transition and blocks until it completes or fails.
// Calling Run while another run is in flight cancels the earlier one first.
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	return o.runtime.Run(ctx, req)
}

// CancelCurrent cancels the in-flight run, if any.
func (o *Orchestrator) CancelCurrent() {
	o.runtime.CancelCurrent()
}

// Retry runs the last requested transition again.
func (o *Orchestrator) Retry(ctx context.Context) error {
	return o.runtime.Retry(ctx)
}

// ClearCacheAndRetry clears the content cache, then retries.
func (o *Orchestrator) ClearCacheAndRetry(ctx context.Context) error {
	return o.runtime.ClearCacheAndRetry(ctx)
}

// Status returns a snapshot of the current state.
func (o *Orchestrator) Status() domain.Snapshot {
	return o.runtime.Status()
}

// Active lists the refs of the content currently live.
func (o *Orchestrator) Active() []string {
	return o.runtime.Active()
}

// Gates exposes hold/release to external collaborators.
func (o *Orchestrator) Gates() ports.GateController {
	return o.runtime.Gates()
}

// Progress exposes the progress hub.
func (o *Orchestrator) Progress() *progress.Hub {
	return o.runtime.Progress()
}

// Plan lists the steps a run of req would execute, in order.
func (o *Orchestrator) Plan(req Request) []string {
	return o.runtime.Plan(req)
}

// Subscribe streams status events until the returned function is called.
func (o *Orchestrator) Subscribe(buffer int) (<-chan domain.StatusEvent, func()) {
	return o.runtime.Subscribe(buffer)
}
