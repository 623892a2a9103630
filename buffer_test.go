package gpukit

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gpukit/internal/gputest"
	"github.com/gogpu/gputypes"
)

func TestEnsureCapacity(t *testing.T) {
	ctx, dev := newTestContext(t)
	buf := newTestBuffer(t, ctx, "grow", 128)
	handle, _, gen := buf.state()

	if err := buf.EnsureCapacity(64); err != nil {
		t.Fatalf("EnsureCapacity(smaller): %v", err)
	}
	if buf.Size() != 128 {
		t.Errorf("size = %d after shrinking request, want 128", buf.Size())
	}
	if h, _, g := buf.state(); h != handle || g != gen {
		t.Errorf("shrinking request reallocated the buffer")
	}

	if err := buf.EnsureCapacity(512); err != nil {
		t.Fatalf("EnsureCapacity(larger): %v", err)
	}
	if buf.Size() != 512 {
		t.Errorf("size = %d, want 512", buf.Size())
	}
	newHandle, _, newGen := buf.state()
	if newGen != gen+1 {
		t.Errorf("generation = %d, want %d", newGen, gen+1)
	}
	if dev.IsLive(uint64(handle.ID())) {
		t.Errorf("old storage still live")
	}
	if size, ok := dev.BufferSize(newHandle.ID()); !ok || size != 512 {
		t.Errorf("device buffer size = %d (live %v), want 512", size, ok)
	}
}

func TestEnsureCapacitySharedFails(t *testing.T) {
	ctx, _ := newTestContext(t)
	buf := newTestBuffer(t, ctx, "shared", 64)
	clone := buf.Clone()

	if err := buf.EnsureCapacity(128); !errors.Is(err, ErrBufferShared) {
		t.Fatalf("error = %v, want ErrBufferShared", err)
	}
	if buf.Size() != 64 {
		t.Errorf("size = %d after failed growth, want 64", buf.Size())
	}

	clone.Release()
	if err := buf.EnsureCapacity(128); err != nil {
		t.Errorf("EnsureCapacity after releasing the clone: %v", err)
	}
}

func TestBufferCloneRelease(t *testing.T) {
	ctx, dev := newTestContext(t)
	buf := newTestBuffer(t, ctx, "owned", 32)
	clone := buf.Clone()

	if clone.ID() != buf.ID() {
		t.Errorf("clone identity %d, want %d", clone.ID(), buf.ID())
	}
	buf.Release()
	buf.Release()
	if n := dev.Live(gputest.KindBuffer); n != 1 {
		t.Fatalf("buffer destroyed while a clone is alive")
	}
	clone.Release()
	if n := dev.Live(gputest.KindBuffer); n != 0 {
		t.Errorf("live buffers = %d after releasing every handle, want 0", n)
	}
	if err := clone.Write(0, []byte{1}); !errors.Is(err, ErrReleased) {
		t.Errorf("write after release error = %v, want ErrReleased", err)
	}
}

func TestBufferWithData(t *testing.T) {
	ctx, _ := newTestContext(t)
	data := []byte{9, 8, 7, 6}
	buf, err := NewBufferWithData(ctx, "data", gputypes.BufferUsageStorage, data)
	if err != nil {
		t.Fatalf("NewBufferWithData: %v", err)
	}
	defer buf.Release()

	if buf.Usage()&gputypes.BufferUsageCopyDst == 0 {
		t.Errorf("usage %v lacks CopyDst", buf.Usage())
	}
	got, err := buf.Read(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, data) {
		t.Errorf("contents = %v, want %v", got, data)
	}
	if err := buf.Write(2, []byte{1, 2, 3}); err == nil {
		t.Errorf("out of range write succeeded")
	}
}

func TestBufferSliceClamp(t *testing.T) {
	ctx, _ := newTestContext(t)
	buf := newTestBuffer(t, ctx, "slices", 100)

	tests := []struct {
		start, end   uint64
		offset, size uint64
	}{
		{0, 100, 0, 100},
		{10, 20, 10, 10},
		{50, 500, 50, 50},
		{200, 300, 100, 0},
		{30, 10, 10, 0},
	}
	for _, tt := range tests {
		s := buf.Slice(tt.start, tt.end)
		if s.Offset() != tt.offset || s.Size() != tt.size {
			t.Errorf("Slice(%d, %d) = [%d +%d], want [%d +%d]",
				tt.start, tt.end, s.Offset(), s.Size(), tt.offset, tt.size)
		}
		if s.Buffer() != buf {
			t.Errorf("Slice(%d, %d) lost its buffer", tt.start, tt.end)
		}
	}
	if all := buf.SliceAll(); all.Offset() != 0 || all.Size() != 100 {
		t.Errorf("SliceAll = [%d +%d], want [0 +100]", all.Offset(), all.Size())
	}
}

func TestNewBufferRejected(t *testing.T) {
	ctx, _ := newTestContext(t)
	_, err := NewBuffer(ctx, BufferDescriptor{Label: "empty"})
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}

func TestCloneOfReleasedBuffer(t *testing.T) {
	ctx, dev := newTestContext(t)
	buf := newTestBuffer(t, ctx, "kept", 32)
	other := buf.Clone()
	other.Release()

	late := other.Clone()
	if err := late.Write(0, []byte{1}); !errors.Is(err, ErrReleased) {
		t.Errorf("write through clone of released handle error = %v, want ErrReleased", err)
	}
	if _, err := late.Read(0, 4); !errors.Is(err, ErrReleased) {
		t.Errorf("read through clone of released handle error = %v, want ErrReleased", err)
	}
	late.Release()
	if n := buf.storage.owners; n != 1 {
		t.Errorf("owners = %d, want 1", n)
	}

	buf.Release()
	if n := dev.Live(gputest.KindBuffer); n != 0 {
		t.Errorf("live buffers = %d after releasing the last owner, want 0", n)
	}
	if n := dev.Destroyed(gputest.KindBuffer); n != 1 {
		t.Errorf("destroyed buffers = %d, want 1", n)
	}
}
