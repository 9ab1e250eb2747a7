// Package progress merges nested progress ranges into one loading-bar signal.
//
// Stages push the window of the overall bar they own, report 0..1 inside it,
// and pop the window when they are done. A background tick loop smooths the
// resulting value for display.
package progress

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/transit/internal/logging"
	"github.com/aretw0/transit/pkg/ports"
)

const (
	// DefaultMinVisible is the shortest time a loading display stays up.
	DefaultMinVisible = 350 * time.Millisecond
	// DefaultTickInterval is the smoothing tick period.
	DefaultTickInterval = 16 * time.Millisecond
	// FilledThreshold is where the smoothed bar counts as visually full.
	FilledThreshold = 0.999
)

// Range is the window of the overall bar a stage may occupy.
type Range struct {
	Min float64
	Max float64
}

// FullRange is the whole bar.
var FullRange = Range{Min: 0, Max: 1}

// Normalize clamps both bounds into [0,1] and swaps them if reversed.
func (r Range) Normalize() Range {
	r.Min, r.Max = clamp01(r.Min), clamp01(r.Max)
	if r.Min > r.Max {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Map rescales p (clamped to [0,1]) into the range.
func (r Range) Map(p float64) float64 {
	return r.Min + clamp01(p)*(r.Max-r.Min)
}

// Hub owns the range stack, the smoother and its tick loop.
type Hub struct {
	smoother     *Smoother
	clock        ports.Clock
	logger       *slog.Logger
	tickInterval time.Duration
	minVisible   time.Duration

	mu        sync.Mutex
	current   Range
	stack     []Range
	// generation changes on every Stop; releases from an older one are ignored.
	generation uint64
	presenter ports.LoadingPresenter
	shownAt   time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures the Hub.
type Option func(*Hub)

// WithClock sets the unscaled time source.
func WithClock(c ports.Clock) Option {
	return func(h *Hub) { h.clock = c }
}

// WithTickInterval sets how often the smoother advances.
func WithTickInterval(d time.Duration) Option {
	return func(h *Hub) { h.tickInterval = d }
}

// WithMinVisible sets the minimum visible duration enforced by WaitUntilFilled.
func WithMinVisible(d time.Duration) Option {
	return func(h *Hub) { h.minVisible = d }
}

// WithSpeed sets the smoothing speed function.
func WithSpeed(speed SpeedFunc) Option {
	return func(h *Hub) { h.smoother = NewSmoother(speed) }
}

// WithLogger configures a logger for the Hub.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) { h.logger = logger }
}

// NewHub creates an idle hub with the full range active.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		smoother:     NewSmoother(nil),
		clock:        ports.SystemClock{},
		logger:       logging.NewNop(),
		tickInterval: DefaultTickInterval,
		minVisible:   DefaultMinVisible,
		current:      FullRange,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetPresenter registers the presentation that receives progress and messages.
// Passing nil unregisters it.
func (h *Hub) SetPresenter(p ports.LoadingPresenter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presenter = p
}

// Begin resets the bar to zero, starts the minimum-visible clock and the tick loop.
// A loop left over from an earlier run is stopped first so it cannot overwrite the reset.
func (h *Hub) Begin() {
	h.Stop()
	h.smoother.Reset(0)
	h.mu.Lock()
	h.shownAt = h.clock.Now()
	h.mu.Unlock()
	h.ensureRunning()
}

// PushRange installs [min,max] as the current window and returns the function
// that restores the previous one. The returned release is idempotent; defer it.
func (h *Hub) PushRange(min, max float64) (release func()) {
	h.mu.Lock()
	depth, generation := len(h.stack), h.generation
	h.stack = append(h.stack, h.current)
	h.current = Range{Min: min, Max: max}.Normalize()
	h.mu.Unlock()

	h.ensureRunning()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			// Stop may already have reset the stack, and a newer push may own it.
			if generation != h.generation || depth >= len(h.stack) {
				return
			}
			h.current = h.stack[depth]
			h.stack = h.stack[:depth]
		})
	}
}

// Current returns the active window.
func (h *Hub) Current() Range {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// ReportRealtime01 maps p through the current window and makes it the new target.
func (h *Hub) ReportRealtime01(p float64) {
	h.smoother.SetRealtime(h.Current().Map(p))
}

// Complete drives the target to the end of the bar regardless of the window.
func (h *Hub) Complete() {
	h.smoother.SetRealtime(1)
}

// Realtime is the latest mapped value.
func (h *Hub) Realtime() float64 { return h.smoother.Realtime() }

// Smoothed is the display value.
func (h *Hub) Smoothed() float64 { return h.smoother.Smoothed() }

// SetMessage forwards text to the registered presenter.
func (h *Hub) SetMessage(text string) {
	if text == "" {
		return
	}
	h.mu.Lock()
	p := h.presenter
	h.mu.Unlock()
	if p != nil {
		p.SetMessage(text)
	}
}

// WaitUntilFilled returns once the display has been up for the minimum visible
// duration and the smoothed bar has caught up with a full bar.
func (h *Hub) WaitUntilFilled(ctx context.Context) error {
	h.ensureRunning()

	h.mu.Lock()
	shownAt := h.shownAt
	h.mu.Unlock()

	if remaining := h.minVisible - h.clock.Now().Sub(shownAt); remaining > 0 {
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()
	for h.smoother.Smoothed() < FilledThreshold {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Stop halts the tick loop and resets the window stack. Safe to call repeatedly.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.stack = nil
	h.current = FullRange
	h.generation++
	h.shownAt = time.Time{}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether the tick loop is active.
func (h *Hub) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancel != nil
}

func (h *Hub) ensureRunning() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		return
	}
	if h.shownAt.IsZero() {
		h.shownAt = h.clock.Now()
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	go h.loop(ctx, h.done)
	h.logger.Debug("progress tick loop started", "interval", h.tickInterval)
}

func (h *Hub) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	last := h.clock.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := h.clock.Now()
			smoothed := h.smoother.Tick(now.Sub(last))
			last = now

			h.mu.Lock()
			p := h.presenter
			h.mu.Unlock()
			if p != nil {
				p.SetProgress(h.smoother.Realtime(), smoothed)
			}
		}
	}
}
