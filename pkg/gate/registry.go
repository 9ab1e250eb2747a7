// Package gate provides named, single-fire synchronization checkpoints.
//
// A gate is absent until someone holds it. Waiting on an absent gate succeeds
// immediately: gates are opt-in barriers, not mandatory rendezvous points.
// Releasing a held gate wakes every waiter and removes the entry.
package gate

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// TimeoutError is returned by WaitWithTimeout when the timer fires first.
type TimeoutError struct {
	Gate     string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gate %q not released within %s", e.Gate, e.Duration)
}

// Timeout marks the error as a timeout for classifiers.
func (e *TimeoutError) Timeout() bool { return true }

// signal is one held gate. It fires exactly once.
type signal struct {
	done chan struct{}
	once sync.Once
}

func newSignal() *signal {
	return &signal{done: make(chan struct{})}
}

func (s *signal) fire() {
	s.once.Do(func() { close(s.done) })
}

// Registry maps gate ids to held signals. It is safe for concurrent use:
// an external collaborator may Release while the orchestrator waits.
type Registry[K comparable] struct {
	entries cmap.ConcurrentMap[K, *signal]
}

// NewRegistry creates an empty registry.
func NewRegistry[K comparable]() *Registry[K] {
	return &Registry[K]{
		entries: cmap.NewWithCustomShardingFunction[K, *signal](shard[K]),
	}
}

func shard[K comparable](key K) uint32 {
	h := fnv.New32a()
	_, _ = fmt.Fprint(h, key)
	return h.Sum32()
}

// Hold puts id in the held state. Holding an already held gate is a no-op.
func (r *Registry[K]) Hold(id K) {
	r.entries.SetIfAbsent(id, newSignal())
}

// Release fires the signal for id and removes it. No-op if id is not held.
func (r *Registry[K]) Release(id K) {
	if s, ok := r.entries.Pop(id); ok {
		s.fire()
	}
}

// IsHeld reports whether id is currently held.
func (r *Registry[K]) IsHeld(id K) bool {
	return r.entries.Has(id)
}

// Held lists the currently held gate ids in no particular order.
func (r *Registry[K]) Held() []K {
	return r.entries.Keys()
}

// Wait blocks until id is released or ctx is done. An absent gate returns nil at once.
// Cancellation surfaces ctx.Err(), never a timeout.
func (r *Registry[K]) Wait(ctx context.Context, id K) error {
	s, ok := r.entries.Get(id)
	if !ok {
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitWithTimeout is Wait raced against a timer. When the timer wins it returns a
// *TimeoutError naming the gate and duration. The gate stays held: a later Release
// is still harmless and another Wait races the same entry again.
func (r *Registry[K]) WaitWithTimeout(ctx context.Context, id K, timeout time.Duration) error {
	s, ok := r.entries.Get(id)
	if !ok {
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &TimeoutError{Gate: fmt.Sprint(id), Duration: timeout}
	}
}
