package progress

import (
	"math"
	"sync/atomic"
	"time"
)

// DefaultSpeed is how much of the bar the smoothed value may cover per second.
const DefaultSpeed = 1.5

// SpeedFunc returns the smoothing speed (fraction per second) for the current smoothed value.
type SpeedFunc func(smoothed float64) float64

// ConstantSpeed moves the smoothed value at a fixed rate.
func ConstantSpeed(perSecond float64) SpeedFunc {
	return func(float64) float64 { return perSecond }
}

// EaseOutSpeed slows the bar down as it approaches full, so the last stretch
// never outruns late-arriving work.
func EaseOutSpeed(perSecond, floor float64) SpeedFunc {
	return func(smoothed float64) float64 {
		return math.Max(floor, perSecond*(1-smoothed))
	}
}

// atomicFloat is a float64 with atomic load/store semantics.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Smoother holds the raw realtime value and a rate-limited smoothed view of it.
// The pipeline is the only writer of realtime and the tick loop the only writer
// of smoothed, so both are plain atomics.
type Smoother struct {
	realtime atomicFloat
	smoothed atomicFloat
	speed    SpeedFunc
}

// NewSmoother creates a smoother at zero. A nil speed uses DefaultSpeed.
func NewSmoother(speed SpeedFunc) *Smoother {
	if speed == nil {
		speed = ConstantSpeed(DefaultSpeed)
	}
	return &Smoother{speed: speed}
}

// SetRealtime sets the target the smoothed value moves towards.
func (s *Smoother) SetRealtime(v float64) { s.realtime.Store(clamp01(v)) }

func (s *Smoother) Realtime() float64 { return s.realtime.Load() }
func (s *Smoother) Smoothed() float64 { return s.smoothed.Load() }

// Reset puts both values at v.
func (s *Smoother) Reset(v float64) {
	v = clamp01(v)
	s.realtime.Store(v)
	s.smoothed.Store(v)
}

// Tick advances the smoothed value by at most dt*speed and returns it.
func (s *Smoother) Tick(dt time.Duration) float64 {
	cur := s.smoothed.Load()
	next := MoveTowards(cur, s.realtime.Load(), dt.Seconds()*s.speed(cur))
	s.smoothed.Store(next)
	return next
}

// MoveTowards moves current towards target by at most maxDelta, never overshooting.
func MoveTowards(current, target, maxDelta float64) float64 {
	if maxDelta <= 0 {
		return current
	}
	if math.Abs(target-current) <= maxDelta {
		return target
	}
	if target > current {
		return current + maxDelta
	}
	return current - maxDelta
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
