package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/transit/pkg/ports"
)

// Handle is content held by the in-memory Loader.
type Handle struct {
	ref    string
	loader *Loader

	mu     sync.Mutex
	active bool
}

func (h *Handle) Ref() string { return h.ref }

// Activate marks the content live unless an activation failure is injected.
func (h *Handle) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.loader.injected(h.loader.activateFailures, h.ref); err != nil {
		return err
	}
	h.mu.Lock()
	h.active = true
	h.mu.Unlock()
	h.loader.record("activate:" + h.ref)
	return nil
}

// Active reports whether Activate succeeded.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// Loader simulates content loading in memory. Loads advance in Steps
// increments, each taking StepDelay, and honor cancellation between steps.
// Safe for concurrent use.
type Loader struct {
	steps     int
	stepDelay time.Duration

	mu               sync.Mutex
	live             map[string]*Handle
	loadFailures     map[string]error
	activateFailures map[string]error
	unloadFailures   map[string]error
	ops              []string
}

// LoaderOption configures the Loader.
type LoaderOption func(*Loader)

// WithSteps sets how many progress increments a load reports.
func WithSteps(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.steps = n
		}
	}
}

// WithStepDelay sets how long each progress increment takes.
func WithStepDelay(d time.Duration) LoaderOption {
	return func(l *Loader) { l.stepDelay = d }
}

// NewLoader creates an empty loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		steps:            4,
		live:             make(map[string]*Handle),
		loadFailures:     make(map[string]error),
		activateFailures: make(map[string]error),
		unloadFailures:   make(map[string]error),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Preload makes refs live without going through a transition and returns their handles.
func (l *Loader) Preload(refs ...string) []ports.Handle {
	handles := make([]ports.Handle, 0, len(refs))
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ref := range refs {
		h := &Handle{ref: ref, loader: l, active: true}
		l.live[ref] = h
		handles = append(handles, h)
	}
	return handles
}

// FailLoad makes every Load of ref fail halfway with err. A nil err heals it.
func (l *Loader) FailLoad(ref string, err error) { l.inject(l.loadFailures, ref, err) }

// FailActivate makes activation of ref fail with err. A nil err heals it.
func (l *Loader) FailActivate(ref string, err error) { l.inject(l.activateFailures, ref, err) }

// FailUnload makes Unload of ref fail with err. A nil err heals it.
func (l *Loader) FailUnload(ref string, err error) { l.inject(l.unloadFailures, ref, err) }

func (l *Loader) inject(m map[string]error, ref string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(m, ref)
		return
	}
	m[ref] = err
}

func (l *Loader) injected(m map[string]error, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return m[ref]
}

func (l *Loader) record(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

// Load simulates a staged load of ref.
func (l *Loader) Load(ctx context.Context, ref string, opts ports.LoadOptions, progress ports.ProgressFunc) (ports.Handle, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	l.record("load:" + ref)

	for i := 1; i <= l.steps; i++ {
		if err := wait(ctx, l.stepDelay); err != nil {
			return nil, err
		}
		if i > l.steps/2 {
			if err := l.injected(l.loadFailures, ref); err != nil {
				return nil, err
			}
		}
		progress(float64(i) / float64(l.steps))
	}

	h := &Handle{ref: ref, loader: l}
	l.mu.Lock()
	l.live[ref] = h
	l.mu.Unlock()
	return h, nil
}

// Unload drops h.
func (l *Loader) Unload(ctx context.Context, h ports.Handle) error {
	if err := l.injected(l.unloadFailures, h.Ref()); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.live[h.Ref()]; !ok || ports.Handle(cur) != h {
		return fmt.Errorf("content %q is not loaded", h.Ref())
	}
	delete(l.live, h.Ref())
	l.ops = append(l.ops, "unload:"+h.Ref())
	return nil
}

// Live lists the refs currently loaded, sorted.
func (l *Loader) Live() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	refs := make([]string, 0, len(l.live))
	for ref := range l.live {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Ops returns the recorded operations in order.
func (l *Loader) Ops() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.ops)
}

func wait(ctx context.Context, d time.Duration) error {
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
