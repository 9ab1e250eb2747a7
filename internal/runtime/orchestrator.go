package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/pipeline"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/aretw0/transit/pkg/progress"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator drives transitions from one content context to another.
// Runs never overlap: a new Run cancels the run it supersedes and waits for
// its cleanup before starting.
type Orchestrator struct {
	loader ports.ContentLoader
	cache  ports.ContentCache
	input  ports.InputBlocker
	fader  ports.Fader
	spill  ports.SpillContainer

	presenters       map[string]ports.LoadingPresenter
	defaultPresenter string

	gates          *gate.Registry[domain.GateID]
	hub            *progress.Hub
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	cleanupTimeout time.Duration

	mu          sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	lastRequest *domain.Request
	active      []ports.Handle
	snapshot    domain.Snapshot
	subscribers map[int]chan domain.StatusEvent
	nextSub     int

	// fallbackActive guards against fallback storms: a fallback run that
	// fails cannot start another fallback.
	fallbackActive atomic.Bool
}

// New creates an orchestrator around loader. Presenters are validated here, once.
func New(loader ports.ContentLoader, opts ...Option) (*Orchestrator, error) {
	if loader == nil {
		return nil, fmt.Errorf("content loader is required")
	}
	o := &Orchestrator{
		loader:         loader,
		presenters:     make(map[string]ports.LoadingPresenter),
		logger:         logging.NewNop(),
		cleanupTimeout: DefaultCleanupTimeout,
		snapshot:       domain.Snapshot{Status: domain.StatusIdle},
		subscribers:    make(map[int]chan domain.StatusEvent),
	}
	for _, opt := range opts {
		opt(o)
	}

	for key, p := range o.presenters {
		if p == nil {
			return nil, fmt.Errorf("%w: presenter %q is nil", domain.ErrUnknownPresenter, key)
		}
	}
	if o.defaultPresenter != "" {
		if _, ok := o.presenters[o.defaultPresenter]; !ok {
			return nil, fmt.Errorf("%w: default %q is not registered", domain.ErrUnknownPresenter, o.defaultPresenter)
		}
	}
	if o.gates == nil {
		o.gates = gate.NewRegistry[domain.GateID]()
	}
	if o.hub == nil {
		o.hub = progress.NewHub(progress.WithLogger(o.logger))
	}
	return o, nil
}

// Run executes one transition and blocks until it completes or fails.
// It remembers req for Retry. A failed run returns a *domain.TransitionError.
func (o *Orchestrator) Run(ctx context.Context, req domain.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	req = req.WithDefaults()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	o.mu.Lock()
	prevCancel, prevDone := o.cancel, o.done
	o.cancel, o.done = cancel, done
	remembered := req
	o.lastRequest = &remembered
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		if o.done == done {
			o.cancel, o.done = nil, nil
		}
		o.mu.Unlock()
		close(done)
	}()

	if prevCancel != nil {
		o.logger.InfoContext(ctx, "superseding in-flight transition", "destination", req.Destination)
		prevCancel()
		<-prevDone
	}

	return o.execute(runCtx, req, false)
}

// CancelCurrent cancels the in-flight run, if any. It never blocks.
func (o *Orchestrator) CancelCurrent() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Retry runs the last requested transition again.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	last := o.lastRequest
	o.mu.Unlock()
	if last == nil {
		return domain.ErrNothingToRetry
	}
	return o.Run(ctx, *last)
}

// Status returns a snapshot of the orchestrator state.
func (o *Orchestrator) Status() domain.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := o.snapshot
	if snap.Failure != nil {
		info := *snap.Failure
		snap.Failure = &info
	}
	return snap
}

// Active lists the refs of the content currently live.
func (o *Orchestrator) Active() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	refs := make([]string, len(o.active))
	for i, h := range o.active {
		refs[i] = h.Ref()
	}
	return refs
}

// Gates exposes the gate registry to external collaborators.
func (o *Orchestrator) Gates() ports.GateController {
	return o.gates
}

// Progress exposes the progress hub.
func (o *Orchestrator) Progress() *progress.Hub {
	return o.hub
}

// Subscribe returns a channel receiving every status event. Slow subscribers
// miss events rather than stall a run. Call the returned function to unsubscribe.
func (o *Orchestrator) Subscribe(buffer int) (<-chan domain.StatusEvent, func()) {
	ch := make(chan domain.StatusEvent, buffer)
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subscribers[id] = ch
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subscribers, id)
			close(ch)
		})
	}
}

func (o *Orchestrator) execute(ctx context.Context, req domain.Request, fallback bool) error {
	runID := uuid.NewString()
	log := o.logger.With("run_id", runID, "destination", req.Destination, "fallback", fallback)

	o.mu.Lock()
	previous := slices.Clone(o.active)
	o.mu.Unlock()

	tc := &pipeline.Context{
		RunID:    runID,
		Request:  req,
		Fallback: fallback,
		Loader:   o.loader,
		Gates:    o.gates,
		Progress: o.hub,
		Input:    o.input,
		Fader:    o.fader,
		Spill:    o.spill,
		Previous: previous,
		Logger:   log,
	}
	tc.OnStatus = func(s domain.Status) { o.setStatus(ctx, tc, s, nil) }

	presenter, err := o.selectPresenter(req)
	if err != nil {
		return o.fail(ctx, tc, err)
	}
	tc.Presenter = presenter

	log.InfoContext(ctx, "transition started", "additive", req.Additive, "anti_spill", req.AntiSpill)
	if err := o.buildPipeline(req).Run(ctx, tc); err != nil {
		return o.fail(ctx, tc, err)
	}
	log.InfoContext(ctx, "transition complete")
	return nil
}

func (o *Orchestrator) selectPresenter(req domain.Request) (ports.LoadingPresenter, error) {
	key := req.Presentation
	if key == "" {
		key = o.defaultPresenter
	}
	if key == "" {
		return nil, nil
	}
	p, ok := o.presenters[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownPresenter, key)
	}
	return p, nil
}

// Plan lists the step names a run of req would execute, in order.
func (o *Orchestrator) Plan(req domain.Request) []string {
	return o.buildPipeline(req.WithDefaults()).Names()
}

// buildPipeline lays out the fixed state order. Anti-spill steps are the only
// optional insertions; gates switch to timed waits when a timeout is set.
func (o *Orchestrator) buildPipeline(req domain.Request) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithLifecycleHooks(o.hooks)}
	if o.tracerProvider != nil {
		opts = append(opts, pipeline.WithTracerProvider(o.tracerProvider))
	}
	p := pipeline.New(opts...)

	p.Add(pipeline.BlockInput{}).
		Add(pipeline.MarkStatus{Status: domain.StatusLoadStarted}).
		Add(pipeline.ShowLoading{}).
		Add(pipeline.Delay{Duration: req.BeforeFadeDelay, Status: domain.StatusBeforeEntryFade}).
		Add(pipeline.FadeIn{Status: domain.StatusEntryFade}).
		Add(pipeline.Delay{Duration: req.AfterFadeDelay, Status: domain.StatusAfterEntryFade})

	if req.AntiSpill {
		p.Add(pipeline.StashSpill{})
	}

	p.Add(pipeline.Unload{Status: domain.StatusUnloading}).
		Add(pipeline.WaitGate{
			Gate:    req.ServerGate,
			Timeout: req.ServerGateTimeout,
			Server:  true,
			Status:  domain.StatusWaitingForServer,
			Message: domain.MessageWaitingForServer,
		}).
		Add(pipeline.Load{Min: req.ProgressMin, Max: req.ProgressMax}).
		Add(pipeline.MarkStatus{Status: domain.StatusBeforeSceneActivation}).
		Add(pipeline.WaitGate{
			Gate:    req.ActivationGate,
			Timeout: req.ActivationTimeout,
			Server:  true,
			Message: domain.MessageWaitingForServer,
		}).
		Add(pipeline.Activate{Status: domain.StatusActivated})

	if req.AntiSpill {
		p.Add(pipeline.FlushSpill{})
	}

	return p.Add(pipeline.MarkStatus{Status: domain.StatusAfterSceneActivation}).
		Add(pipeline.HideLoading{}).
		Add(pipeline.FadeOut{Status: domain.StatusExitFade}).
		Add(pipeline.UnblockInput{}).
		Add(pipeline.Func("commit", o.commit)).
		Add(pipeline.MarkStatus{Status: domain.StatusComplete})
}

// commit publishes the new active content before Complete is reported.
func (o *Orchestrator) commit(_ context.Context, tc *pipeline.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = tc.Active()
	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, tc *pipeline.Context, s domain.Status, failure *domain.FailureInfo) {
	ev := &domain.StatusEvent{
		EventBase:   domain.EventBase{Timestamp: time.Now(), Type: domain.EventStatus, RunID: tc.RunID},
		Status:      s,
		Destination: tc.Request.Destination,
		Fallback:    tc.Fallback,
		Failure:     failure,
	}

	o.mu.Lock()
	prevFailure := o.snapshot.Failure
	o.snapshot = domain.Snapshot{
		RunID:       tc.RunID,
		Destination: tc.Request.Destination,
		Status:      s,
		Fallback:    tc.Fallback,
		Failure:     prevFailure,
	}
	switch {
	case failure != nil:
		o.snapshot.Failure = failure
	case s == domain.StatusLoadStarted && !tc.Fallback:
		o.snapshot.Failure = nil
	}
	for _, ch := range o.subscribers {
		select {
		case ch <- *ev:
		default:
			tc.Log().Warn("status subscriber lagging, event dropped", "status", s)
		}
	}
	o.mu.Unlock()

	if o.hooks.OnStatus != nil {
		o.hooks.OnStatus(ctx, ev)
	}
	if s == domain.StatusFailed && o.hooks.OnFailure != nil {
		o.hooks.OnFailure(ctx, ev)
	}
}
