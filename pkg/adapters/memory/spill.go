package memory

import (
	"context"
	"slices"
	"sync"
)

// Spill implements ports.SpillContainer over a counter of spawned objects.
type Spill struct {
	mu      sync.Mutex
	spawned int
	held    int
	ops     []string
	failErr error
}

// NewSpill creates a container with n spawned objects in the live context.
func NewSpill(n int) *Spill {
	return &Spill{spawned: n}
}

// FailStash makes Stash fail with err. A nil err heals it.
func (s *Spill) FailStash(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Spill) Stash(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "stash")
	if s.failErr != nil {
		return s.failErr
	}
	s.held, s.spawned = s.held+s.spawned, 0
	return nil
}

func (s *Spill) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "flush")
	s.spawned, s.held = s.spawned+s.held, 0
	return nil
}

func (s *Spill) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "discard")
	s.held = 0
	return nil
}

// Counts returns the live and held object counts.
func (s *Spill) Counts() (live, held int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spawned, s.held
}

// Ops returns the recorded operations in order.
func (s *Spill) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ops)
}
