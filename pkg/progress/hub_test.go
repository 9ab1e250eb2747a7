package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/transit/pkg/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPresenter struct {
	mu       sync.Mutex
	messages []string
	updates  int
	smoothed float64
}

func (p *recordingPresenter) Show(string) {}
func (p *recordingPresenter) Hide()       {}
func (p *recordingPresenter) SetProgress(realtime, smoothed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	p.smoothed = smoothed
}
func (p *recordingPresenter) SetMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

func newTestHub() *progress.Hub {
	return progress.NewHub(
		progress.WithTickInterval(2*time.Millisecond),
		progress.WithMinVisible(20*time.Millisecond),
		progress.WithSpeed(progress.ConstantSpeed(20)),
	)
}

func TestRange_Normalize(t *testing.T) {
	assert.Equal(t, progress.Range{Min: 0.2, Max: 0.6}, progress.Range{Min: 0.6, Max: 0.2}.Normalize())
	assert.Equal(t, progress.Range{Min: 0, Max: 1}, progress.Range{Min: -1, Max: 3}.Normalize())
}

func TestHub_ReportMapsThroughCurrentRange(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	release := h.PushRange(0.2, 0.6)
	h.ReportRealtime01(0.5)
	assert.InDelta(t, 0.4, h.Realtime(), 1e-9)

	// Out-of-range input is clamped before mapping.
	h.ReportRealtime01(5)
	assert.InDelta(t, 0.6, h.Realtime(), 1e-9)
	h.ReportRealtime01(-1)
	assert.InDelta(t, 0.2, h.Realtime(), 1e-9)

	release()
	assert.Equal(t, progress.FullRange, h.Current())
}

func TestHub_PushPopRoundTrip(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	before := h.Current()
	outer := h.PushRange(0.1, 0.9)
	inner := h.PushRange(0.9, 0.5) // reversed on purpose
	assert.Equal(t, progress.Range{Min: 0.5, Max: 0.9}, h.Current())

	inner()
	assert.Equal(t, progress.Range{Min: 0.1, Max: 0.9}, h.Current())
	inner() // idempotent
	assert.Equal(t, progress.Range{Min: 0.1, Max: 0.9}, h.Current())

	outer()
	assert.Equal(t, before, h.Current())
}

func TestHub_ReleaseAfterStopIsHarmless(t *testing.T) {
	h := newTestHub()
	release := h.PushRange(0.3, 0.4)
	h.Stop()
	assert.False(t, h.Running())
	release()
	assert.Equal(t, progress.FullRange, h.Current())
	h.Stop()

	// A release from before Stop must not pop a range pushed after it.
	stale := h.PushRange(0.1, 0.2)
	h.Stop()
	fresh := h.PushRange(0.5, 0.9)
	defer h.Stop()
	stale()
	assert.Equal(t, progress.Range{Min: 0.5, Max: 0.9}, h.Current())
	fresh()
	assert.Equal(t, progress.FullRange, h.Current())
}

func TestHub_BeginRestartsLoopFromZero(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	h.Begin()
	h.Complete()
	require.Eventually(t, func() bool { return h.Smoothed() == 1 }, time.Second, 2*time.Millisecond)

	h.Begin()
	assert.True(t, h.Running())
	assert.Zero(t, h.Realtime())
	// The restarted loop has no target to move towards, so the reset sticks.
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, h.Smoothed())
}

func TestHub_TickLoopFeedsPresenter(t *testing.T) {
	h := newTestHub()
	defer h.Stop()
	p := &recordingPresenter{}
	h.SetPresenter(p)

	h.Begin()
	h.ReportRealtime01(1)

	require.Eventually(t, func() bool { return h.Smoothed() == 1 }, time.Second, 2*time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Greater(t, p.updates, 0)
}

func TestHub_SetMessage(t *testing.T) {
	h := newTestHub()
	h.SetMessage("ignored, nobody registered")

	p := &recordingPresenter{}
	h.SetPresenter(p)
	h.SetMessage("")
	h.SetMessage("loading")

	assert.Equal(t, []string{"loading"}, p.messages)
}

func TestHub_WaitUntilFilledEnforcesMinimumVisible(t *testing.T) {
	h := newTestHub()
	defer h.Stop()

	h.Begin()
	h.Complete()

	start := time.Now()
	require.NoError(t, h.WaitUntilFilled(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.GreaterOrEqual(t, h.Smoothed(), progress.FilledThreshold)
}

func TestHub_WaitUntilFilledCancelled(t *testing.T) {
	h := newTestHub()
	defer h.Stop()
	h.Begin() // realtime stays at 0, never fills

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	err := h.WaitUntilFilled(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
