package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/aretw0/transit/pkg/progress"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCleanupTimeout bounds the forced cleanup of a failed run.
const DefaultCleanupTimeout = 10 * time.Second

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) { o.hooks = hooks }
}

// WithCache sets the content cache used by ClearCacheAndRetry.
func WithCache(cache ports.ContentCache) Option {
	return func(o *Orchestrator) { o.cache = cache }
}

// WithInputBlocker sets the input blocker.
func WithInputBlocker(input ports.InputBlocker) Option {
	return func(o *Orchestrator) { o.input = input }
}

// WithFader sets the screen fader.
func WithFader(fader ports.Fader) Option {
	return func(o *Orchestrator) { o.fader = fader }
}

// WithSpillContainer sets the anti-spill holding container.
func WithSpillContainer(spill ports.SpillContainer) Option {
	return func(o *Orchestrator) { o.spill = spill }
}

// WithPresenter registers a loading presenter under key. The first registered
// presenter becomes the default unless WithDefaultPresenter says otherwise.
func WithPresenter(key string, p ports.LoadingPresenter) Option {
	return func(o *Orchestrator) {
		o.presenters[key] = p
		if o.defaultPresenter == "" {
			o.defaultPresenter = key
		}
	}
}

// WithDefaultPresenter selects the presenter used when a request names none.
func WithDefaultPresenter(key string) Option {
	return func(o *Orchestrator) { o.defaultPresenter = key }
}

// WithGates shares a gate registry with external collaborators.
func WithGates(gates *gate.Registry[domain.GateID]) Option {
	return func(o *Orchestrator) { o.gates = gates }
}

// WithProgressHub sets the progress hub.
func WithProgressHub(hub *progress.Hub) Option {
	return func(o *Orchestrator) { o.hub = hub }
}

// WithInitialContent declares the content active before the first run.
func WithInitialContent(handles ...ports.Handle) Option {
	return func(o *Orchestrator) { o.active = append(o.active, handles...) }
}

// WithTracerProvider records pipeline step spans on tp.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracerProvider = tp }
}

// WithCleanupTimeout bounds the forced cleanup of a failed run.
func WithCleanupTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.cleanupTimeout = d }
}
