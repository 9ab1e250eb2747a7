package memory

import (
	"context"
	"slices"
	"sync"
	"time"
)

// InputBlocker counts nested Block/Unblock calls.
type InputBlocker struct {
	mu     sync.Mutex
	depth  int
	blocks int
}

func (b *InputBlocker) Block() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth++
	b.blocks++
}

func (b *InputBlocker) Unblock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth > 0 {
		b.depth--
	}
}

// Blocked reports whether any Block is still outstanding.
func (b *InputBlocker) Blocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth > 0
}

// Blocks is the total number of Block calls.
func (b *InputBlocker) Blocks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.blocks
}

// Fader sleeps for the fade duration and records each fade.
type Fader struct {
	mu      sync.Mutex
	ops     []string
	covered bool
}

func (f *Fader) FadeIn(ctx context.Context, d time.Duration) error {
	f.record("in", true)
	return wait(ctx, d)
}

func (f *Fader) FadeOut(ctx context.Context, d time.Duration) error {
	if err := wait(ctx, d); err != nil {
		return err
	}
	f.record("out", false)
	return nil
}

func (f *Fader) record(op string, covered bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
	f.covered = covered
}

// Covered reports whether the cover is up.
func (f *Fader) Covered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.covered
}

// Ops returns the recorded fades in order.
func (f *Fader) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ops)
}

// Presenter records what the progress hub and steps send it.
type Presenter struct {
	mu       sync.Mutex
	visible  bool
	key      string
	shows    int
	messages []string
	realtime float64
	smoothed float64
}

func (p *Presenter) Show(loadingKey string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.key = loadingKey
	p.shows++
}

func (p *Presenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
}

func (p *Presenter) SetProgress(realtime, smoothed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.realtime, p.smoothed = realtime, smoothed
}

func (p *Presenter) SetMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

// Visible reports whether the presenter is shown.
func (p *Presenter) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Shows is the number of Show calls.
func (p *Presenter) Shows() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shows
}

// LoadingKey is the key passed to the last Show.
func (p *Presenter) LoadingKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.key
}

// Messages returns every message received.
func (p *Presenter) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.messages)
}

// Progress returns the last progress pair received.
func (p *Presenter) Progress() (realtime, smoothed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.realtime, p.smoothed
}
