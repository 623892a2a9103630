package gpukit

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is a bitmask of allowed buffer usages.
	Usage gputypes.BufferUsage
}

// Buffer is a handle to a GPU buffer.
//
// Buffers compare by identity: two handles refer to the same buffer iff
// their IDs are equal. Clone creates another owning handle to the same
// storage; each handle must be released once.
type Buffer struct {
	ctx     *Context
	id      uint64
	storage *bufferStorage

	// released is guarded by storage.mu.
	released bool
}

// bufferStorage is the device allocation shared by cloned handles.
type bufferStorage struct {
	// mu guards the fields below and the released flag of every handle.
	mu         sync.Mutex
	handle     *Shared[gpucore.BufferID]
	label      string
	size       uint64
	usage      gputypes.BufferUsage
	generation uint64
	owners     int
}

// NewBuffer creates a zero-initialized buffer.
func NewBuffer(ctx *Context, desc BufferDescriptor) (*Buffer, error) {
	handle, err := ctx.createBuffer(desc.Label, desc.Size, desc.Usage)
	if err != nil {
		return nil, err
	}
	return &Buffer{
		ctx: ctx,
		id:  newIdentity(),
		storage: &bufferStorage{
			handle: handle,
			label:  desc.Label,
			size:   desc.Size,
			usage:  desc.Usage,
			owners: 1,
		},
	}, nil
}

// NewBufferWithData creates a buffer sized to data and uploads data to it.
// CopyDst is added to usage.
func NewBufferWithData(ctx *Context, label string, usage gputypes.BufferUsage, data []byte) (*Buffer, error) {
	b, err := NewBuffer(ctx, BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := b.Write(0, data); err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

// createBuffer allocates a device buffer wrapped in a Shared handle.
func (c *Context) createBuffer(label string, size uint64, usage gputypes.BufferUsage) (*Shared[gpucore.BufferID], error) {
	id, err := c.device.CreateBuffer(&gpucore.BufferDescriptor{
		Label: c.label(label),
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, configError(err))
	}
	return newShared(id, c.device.DestroyBuffer), nil
}

// ID returns the identity of the buffer.
func (b *Buffer) ID() uint64 {
	return b.id
}

// Label returns the debug name of the buffer.
func (b *Buffer) Label() string {
	return b.storage.label
}

// Size returns the current size in bytes.
func (b *Buffer) Size() uint64 {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	return b.storage.size
}

// Usage returns the usage flags the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage {
	return b.storage.usage
}

// state returns the current device handle, size and storage generation.
func (b *Buffer) state() (*Shared[gpucore.BufferID], uint64, uint64) {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	return b.storage.handle, b.storage.size, b.storage.generation
}

// liveState is state for a handle that has not been released.
func (b *Buffer) liveState() (*Shared[gpucore.BufferID], uint64, error) {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	if b.released {
		return nil, 0, ErrReleased
	}
	return b.storage.handle, b.storage.size, nil
}

func (b *Buffer) isReleased() bool {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	return b.released
}

// retain returns the current device handle with an extra reference.
func (b *Buffer) retain() (*Shared[gpucore.BufferID], error) {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	if b.released {
		return nil, fmt.Errorf("buffer %q: %w", b.storage.label, ErrReleased)
	}
	return b.storage.handle.Retain(), nil
}

// Write uploads data at offset through the device queue.
func (b *Buffer) Write(offset uint64, data []byte) error {
	handle, size, err := b.liveState()
	if err != nil {
		return fmt.Errorf("write buffer %q: %w", b.storage.label, err)
	}
	if offset+uint64(len(data)) > size {
		return fmt.Errorf("write buffer %q: %d bytes at offset %d exceed size %d",
			b.storage.label, len(data), offset, size)
	}
	if err := b.ctx.device.WriteBuffer(handle.ID(), offset, data); err != nil {
		return fmt.Errorf("write buffer %q: %w", b.storage.label, err)
	}
	return nil
}

// Read copies size bytes starting at offset back from the device.
func (b *Buffer) Read(offset, size uint64) ([]byte, error) {
	handle, _, err := b.liveState()
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: %w", b.storage.label, err)
	}
	data, err := b.ctx.device.ReadBuffer(handle.ID(), offset, size)
	if err != nil {
		return nil, fmt.Errorf("read buffer %q: %w", b.storage.label, err)
	}
	return data, nil
}

// EnsureCapacity grows the buffer to at least size bytes.
//
// It does nothing if the buffer is already large enough. Growing allocates
// new storage without copying the old contents, and changes the buffer's
// storage generation so bind groups referencing the old storage are not
// reused. Growing fails with ErrBufferShared while a clone is alive.
func (b *Buffer) EnsureCapacity(size uint64) error {
	s := b.storage
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.released {
		return fmt.Errorf("ensure capacity of buffer %q: %w", s.label, ErrReleased)
	}

	if size <= s.size {
		return nil
	}
	if s.owners > 1 {
		return fmt.Errorf("ensure capacity of buffer %q: %w (%d owners)", s.label, ErrBufferShared, s.owners)
	}

	handle, err := b.ctx.createBuffer(s.label, size, s.usage)
	if err != nil {
		return err
	}
	s.handle.Release()
	s.handle = handle
	s.size = size
	s.generation++

	b.ctx.logger().Debug("gpukit: buffer grown", "label", s.label, "size", size, "generation", s.generation)
	return nil
}

// Clone returns another owning handle to the same buffer. The clone of a
// released handle is itself released, so using it fails with ErrReleased.
func (b *Buffer) Clone() *Buffer {
	b.storage.mu.Lock()
	defer b.storage.mu.Unlock()
	if b.released {
		return &Buffer{ctx: b.ctx, id: b.id, storage: b.storage, released: true}
	}
	b.storage.owners++
	return &Buffer{ctx: b.ctx, id: b.id, storage: b.storage}
}

// Release drops this handle's ownership. The device buffer is destroyed
// once every handle is released and no encoder or bind group uses it.
// Release is idempotent per handle.
func (b *Buffer) Release() {
	s := b.storage
	s.mu.Lock()
	if b.released {
		s.mu.Unlock()
		return
	}
	b.released = true
	s.owners--
	last := s.owners == 0
	s.mu.Unlock()
	if last {
		s.handle.Release()
	}
}

// Slice returns the byte range [start, end) of the buffer, clamped to the
// buffer size.
func (b *Buffer) Slice(start, end uint64) BufferSlice {
	size := b.Size()
	end = min(end, size)
	start = min(start, end)
	return BufferSlice{buffer: b, offset: start, size: end - start}
}

// SliceAll returns the whole buffer as a slice.
func (b *Buffer) SliceAll() BufferSlice {
	return BufferSlice{buffer: b, size: b.Size()}
}

// UniformBinding binds the buffer as a uniform buffer.
func (b *Buffer) UniformBinding() BufferBinding {
	return BufferBinding{buffer: b, bindingType: gpucore.BufferBindingTypeUniform}
}

// StorageBinding binds the buffer as a storage buffer.
func (b *Buffer) StorageBinding(readOnly bool) BufferBinding {
	t := gpucore.BufferBindingTypeStorage
	if readOnly {
		t = gpucore.BufferBindingTypeReadOnlyStorage
	}
	return BufferBinding{buffer: b, bindingType: t}
}

// BufferSlice is a byte range of a Buffer.
type BufferSlice struct {
	buffer *Buffer
	offset uint64
	size   uint64
}

// Buffer returns the sliced buffer.
func (s BufferSlice) Buffer() *Buffer { return s.buffer }

// Offset returns the start of the range in bytes.
func (s BufferSlice) Offset() uint64 { return s.offset }

// Size returns the length of the range in bytes.
func (s BufferSlice) Size() uint64 { return s.size }

// BufferBinding describes how a buffer is bound in a bind group.
type BufferBinding struct {
	buffer         *Buffer
	bindingType    gpucore.BufferBindingType
	dynamicOffset  bool
	minBindingSize uint64
}

// WithDynamicOffset returns a copy of the binding that takes a dynamic
// offset at draw time.
func (b BufferBinding) WithDynamicOffset() BufferBinding {
	b.dynamicOffset = true
	return b
}

// WithMinBindingSize returns a copy of the binding with a minimum binding
// size in bytes.
func (b BufferBinding) WithMinBindingSize(size uint64) BufferBinding {
	b.minBindingSize = size
	return b
}

// Buffer returns the bound buffer.
func (b BufferBinding) Buffer() *Buffer { return b.buffer }
