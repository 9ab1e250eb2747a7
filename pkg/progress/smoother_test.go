package progress_test

import (
	"testing"
	"time"

	"github.com/aretw0/transit/pkg/progress"
	"github.com/stretchr/testify/assert"
)

func TestMoveTowards(t *testing.T) {
	assert.Equal(t, 0.25, progress.MoveTowards(0, 1, 0.25))
	assert.Equal(t, 1.0, progress.MoveTowards(0.9, 1, 0.25), "must not overshoot")
	assert.Equal(t, 0.5, progress.MoveTowards(0.75, 0, 0.25))
	assert.Equal(t, 0.4, progress.MoveTowards(0.4, 1, 0), "zero delta holds still")
}

func TestSmoother_ConvergesExactly(t *testing.T) {
	s := progress.NewSmoother(progress.ConstantSpeed(1))
	s.SetRealtime(1)

	// 4 ticks of 250ms at speed 1 cover the full distance.
	var values []float64
	for i := 0; i < 4; i++ {
		values = append(values, s.Tick(250*time.Millisecond))
	}

	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, values)
	assert.Equal(t, 1.0, s.Smoothed())

	// Further ticks stay put.
	assert.Equal(t, 1.0, s.Tick(time.Second))
}

func TestSmoother_NeverOvershoots(t *testing.T) {
	s := progress.NewSmoother(progress.ConstantSpeed(3))
	s.SetRealtime(0.4)

	for i := 0; i < 50; i++ {
		v := s.Tick(17 * time.Millisecond)
		assert.LessOrEqual(t, v, 0.4)
	}
	assert.Equal(t, 0.4, s.Smoothed())
}

func TestSmoother_FollowsDecreasingRealtime(t *testing.T) {
	s := progress.NewSmoother(progress.ConstantSpeed(1))
	s.Reset(0.8)
	s.SetRealtime(0.3)

	assert.InDelta(t, 0.7, s.Tick(100*time.Millisecond), 1e-9)
	assert.Equal(t, 0.3, s.Tick(time.Second))
}

func TestSmoother_ClampsRealtime(t *testing.T) {
	s := progress.NewSmoother(nil)
	s.SetRealtime(7)
	assert.Equal(t, 1.0, s.Realtime())
	s.SetRealtime(-2)
	assert.Equal(t, 0.0, s.Realtime())
}

func TestEaseOutSpeed(t *testing.T) {
	speed := progress.EaseOutSpeed(2, 0.5)
	assert.Equal(t, 2.0, speed(0))
	assert.Equal(t, 1.0, speed(0.5))
	assert.Equal(t, 0.5, speed(0.9), "floor keeps the bar moving near the end")
}
