// Package vsync provides the cycle barrier that paces capture and painting.
package vsync

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBroken is returned by Wait once the barrier has been broken.
var ErrBroken = errors.New("vsync: barrier broken")

// Barrier is a reusable rendezvous for a fixed number of parties.
//
// Wait blocks until all parties have arrived, then releases them together
// and resets for the next cycle. Break releases every current and future
// waiter with ErrBroken; the pipeline uses it to unwind on shutdown or on
// the first fatal error.
type Barrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	parties    int
	arrived    int
	generation uint64
	broken     bool
}

// New creates a barrier for the given number of parties.
func New(parties int) (*Barrier, error) {
	if parties < 1 {
		return nil, fmt.Errorf("vsync: parties must be >= 1, got %d", parties)
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b, nil
}

// Parties returns the number of parties required to trip the barrier.
func (b *Barrier) Parties() int { return b.parties }

// Generation returns how many times the barrier has tripped.
func (b *Barrier) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Wait blocks until every party has called Wait for the current cycle.
func (b *Barrier) Wait() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return ErrBroken
	}

	gen := b.generation
	b.arrived++
	if b.arrived == b.parties {
		b.arrived = 0
		b.generation++
		b.cond.Broadcast()
		return nil
	}

	for gen == b.generation && !b.broken {
		b.cond.Wait()
	}
	if gen == b.generation {
		// woken by Break before the cycle completed
		return ErrBroken
	}
	return nil
}

// Break releases all waiters with ErrBroken. Idempotent.
func (b *Barrier) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.broken {
		return
	}
	b.broken = true
	b.cond.Broadcast()
}

// Broken reports whether Break has been called.
func (b *Barrier) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}
