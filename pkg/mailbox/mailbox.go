// Package mailbox implements a single-slot, overwrite-on-send hand-off between
// two goroutines.
//
// Drop frames, never queue: a Put replaces any value the consumer has not
// taken yet, and the replaced value is reported to the caller so it can be
// released and counted.
package mailbox

import (
	"sync"
	"sync/atomic"
)

// Stats is a snapshot of mailbox counters.
type Stats struct {
	Puts  uint64
	Takes uint64
	Drops uint64
}

// Slot holds at most one pending value.
type Slot[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	full   bool
	closed bool

	puts  atomic.Uint64
	takes atomic.Uint64
	drops atomic.Uint64
}

// New creates an empty slot.
func New[T any]() *Slot[T] {
	s := &Slot[T]{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Put stores v, never blocking. When an unconsumed value was replaced it is
// returned with dropped=true. Put on a closed slot returns v itself as dropped.
func (s *Slot[T]) Put(v T) (old T, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return v, true
	}
	s.puts.Add(1)
	if s.full {
		old, dropped = s.value, true
		s.drops.Add(1)
	}
	s.value = v
	s.full = true
	s.cond.Signal()
	return old, dropped
}

// Take blocks until a value is available or the slot is closed.
// ok is false once the slot is closed.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.full && !s.closed {
		s.cond.Wait()
	}
	if s.closed {
		return v, false
	}
	v = s.value
	var zero T
	s.value = zero
	s.full = false
	s.takes.Add(1)
	return v, true
}

// Close wakes a blocked Take and returns any pending value so the caller can
// release it. Close is idempotent.
func (s *Slot[T]) Close() (pending T, had bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return pending, false
	}
	s.closed = true
	if s.full {
		pending, had = s.value, true
		var zero T
		s.value = zero
		s.full = false
	}
	s.cond.Broadcast()
	return pending, had
}

// Pending reports whether a value is waiting.
func (s *Slot[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}

// Stats returns the current counters.
func (s *Slot[T]) Stats() Stats {
	return Stats{
		Puts:  s.puts.Load(),
		Takes: s.takes.Load(),
		Drops: s.drops.Load(),
	}
}
