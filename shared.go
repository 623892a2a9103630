package gpukit

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpukit/gpucore"
)

// Shared is a reference-counted device object.
//
// A Shared starts with one reference. Retain adds one and Release drops one;
// the device object is destroyed when the last reference is released.
// Caches hold one reference per entry, so an evicted object stays alive
// while an encoder or caller still holds it.
//
// Shared is safe for concurrent use.
type Shared[T gpucore.ID] struct {
	id      T
	refs    atomic.Int64
	destroy func(T)
}

// newShared wraps id with a single reference.
func newShared[T gpucore.ID](id T, destroy func(T)) *Shared[T] {
	s := &Shared[T]{id: id, destroy: destroy}
	s.refs.Store(1)
	return s
}

// ID returns the device object ID.
func (s *Shared[T]) ID() T {
	return s.id
}

// Refs returns the current reference count.
func (s *Shared[T]) Refs() int64 {
	return s.refs.Load()
}

// Retain adds a reference and returns s. Retaining an object whose last
// reference was already released panics.
func (s *Shared[T]) Retain() *Shared[T] {
	if !s.tryRetain() {
		panic(fmt.Sprintf("gpukit: Shared[%T](%d) retained after release", s.id, s.id))
	}
	return s
}

// tryRetain adds a reference unless the object is already destroyed.
func (s *Shared[T]) tryRetain() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Release drops a reference, destroying the device object when none remain.
// Releasing more often than retaining panics.
func (s *Shared[T]) Release() {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		if s.destroy != nil {
			s.destroy(s.id)
		}
	case n < 0:
		panic(fmt.Sprintf("gpukit: Shared[%T](%d) released too many times", s.id, s.id))
	}
}

// releaseAll releases each handle once.
func releaseAll[T gpucore.ID](handles []*Shared[T]) {
	for _, h := range handles {
		h.Release()
	}
}
