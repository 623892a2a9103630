package gpukit

import (
	"sync"
	"testing"

	"github.com/gogpu/gpukit/gpucore"
)

func TestSharedRelease(t *testing.T) {
	var destroyed []gpucore.BufferID
	s := newShared(gpucore.BufferID(7), func(id gpucore.BufferID) {
		destroyed = append(destroyed, id)
	})

	s.Retain().Retain()
	if s.Refs() != 3 {
		t.Fatalf("refs = %d, want 3", s.Refs())
	}
	s.Release()
	s.Release()
	if len(destroyed) != 0 {
		t.Fatalf("destroyed with a reference left")
	}
	s.Release()
	if len(destroyed) != 1 || destroyed[0] != 7 {
		t.Errorf("destroyed = %v, want [7]", destroyed)
	}
}

func TestSharedOverReleasePanics(t *testing.T) {
	s := newShared(gpucore.SamplerID(1), nil)
	s.Release()

	defer func() {
		if recover() == nil {
			t.Errorf("second Release did not panic")
		}
	}()
	s.Release()
}

func TestSharedConcurrent(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	s := newShared(gpucore.BindGroupID(1), func(gpucore.BindGroupID) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		s.Retain()
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Release()
		}()
	}
	wg.Wait()
	s.Release()

	if count != 1 {
		t.Errorf("destroy ran %d times, want 1", count)
	}
}

func TestKeyWriterLengthPrefix(t *testing.T) {
	var a, b keyWriter
	a.str("ab")
	a.str("c")
	b.str("a")
	b.str("bc")
	if a.String() == b.String() {
		t.Errorf("length prefix missing: %q == %q", a.String(), b.String())
	}
}

func TestSharedRetainAfterRelease(t *testing.T) {
	destroyed := 0
	s := newShared(gpucore.TextureID(3), func(gpucore.TextureID) { destroyed++ })
	s.Release()

	if s.tryRetain() {
		t.Errorf("tryRetain succeeded on a destroyed handle")
	}
	if s.Refs() != 0 {
		t.Errorf("refs = %d after failed tryRetain, want 0", s.Refs())
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("Retain after release did not panic")
			}
		}()
		s.Retain()
	}()
	if destroyed != 1 {
		t.Errorf("destroyed %d times, want 1", destroyed)
	}
}
