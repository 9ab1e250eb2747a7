package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/transit/pkg/adapters/memory"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadReportsProgress(t *testing.T) {
	l := memory.NewLoader(memory.WithSteps(4))

	var reported []float64
	h, err := l.Load(context.Background(), "B", ports.LoadOptions{}, func(p float64) { reported = append(reported, p) })
	require.NoError(t, err)

	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, reported)
	assert.Equal(t, "B", h.Ref())
	assert.Equal(t, []string{"B"}, l.Live())

	require.NoError(t, h.Activate(context.Background()))
	assert.True(t, h.(*memory.Handle).Active())
	assert.Equal(t, []string{"load:B", "activate:B"}, l.Ops())
}

func TestLoader_FailLoadHalfway(t *testing.T) {
	l := memory.NewLoader(memory.WithSteps(4))
	boom := errors.New("bundle missing")
	l.FailLoad("B", boom)

	var reported []float64
	_, err := l.Load(context.Background(), "B", ports.LoadOptions{}, func(p float64) { reported = append(reported, p) })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []float64{0.25, 0.5}, reported)
	assert.Empty(t, l.Live())

	l.FailLoad("B", nil)
	_, err = l.Load(context.Background(), "B", ports.LoadOptions{}, nil)
	assert.NoError(t, err)
}

func TestLoader_LoadHonorsCancellation(t *testing.T) {
	l := memory.NewLoader(memory.WithSteps(10), memory.WithStepDelay(20*time.Millisecond))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := l.Load(ctx, "B", ports.LoadOptions{}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, l.Live())
}

func TestLoader_Unload(t *testing.T) {
	l := memory.NewLoader()
	handles := l.Preload("A", "hud")

	require.NoError(t, l.Unload(context.Background(), handles[0]))
	assert.Equal(t, []string{"hud"}, l.Live())

	assert.Error(t, l.Unload(context.Background(), handles[0]), "double unload")

	l.FailUnload("hud", errors.New("locked"))
	assert.Error(t, l.Unload(context.Background(), handles[1]))
	assert.Equal(t, []string{"hud"}, l.Live())
}
