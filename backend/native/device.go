//go:build !nogpu

package native

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"
)

// HALDevice implements gpucore.Device over gogpu/wgpu/hal.
// It maps gpucore IDs to HAL objects and tracks in-flight submissions with
// a single timeline fence.
//
// HALDevice is safe for concurrent use. The hal.Device and hal.Queue stay
// owned by the caller; Close releases only what HALDevice created.
type HALDevice struct {
	mu     sync.RWMutex
	device hal.Device
	queue  hal.Queue
	opts   options
	closed atomic.Bool

	// ID generation; 0 is gpucore.InvalidID.
	nextID atomic.Uint64

	buffers          map[gpucore.BufferID]*buffer
	textures         map[gpucore.TextureID]*texture
	views            map[gpucore.TextureViewID]hal.TextureView
	samplers         map[gpucore.SamplerID]hal.Sampler
	shaders          map[gpucore.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]hal.BindGroupLayout
	bindGroups       map[gpucore.BindGroupID]hal.BindGroup
	pipelineLayouts  map[gpucore.PipelineLayoutID]hal.PipelineLayout
	renderPipelines  map[gpucore.RenderPipelineID]hal.RenderPipeline
	computePipelines map[gpucore.ComputePipelineID]hal.ComputePipeline

	// Submission timeline, guarded by submitMu.
	submitMu sync.Mutex
	fence    hal.Fence
	signaled uint64
	inflight []inflight

	// spirv caches naga output keyed by WGSL source.
	spirv *lru.Cache[string, []uint32]
}

var _ gpucore.Device = (*HALDevice)(nil)

type buffer struct {
	raw  hal.Buffer
	size uint64
}

type texture struct {
	raw  hal.Texture
	desc gpucore.TextureDescriptor
}

// inflight is a submitted command buffer waiting for its fence value.
type inflight struct {
	value   uint64
	cmd     hal.CommandBuffer
	staging []hal.Buffer
}

// New wraps an open HAL device and queue.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*HALDevice, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("native: nil device or queue")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	spirv, err := lru.New[string, []uint32](o.shaderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("native: shader cache: %w", err)
	}
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}

	d := &HALDevice{
		device:           device,
		queue:            queue,
		opts:             o,
		buffers:          make(map[gpucore.BufferID]*buffer),
		textures:         make(map[gpucore.TextureID]*texture),
		views:            make(map[gpucore.TextureViewID]hal.TextureView),
		samplers:         make(map[gpucore.SamplerID]hal.Sampler),
		shaders:          make(map[gpucore.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]hal.BindGroupLayout),
		bindGroups:       make(map[gpucore.BindGroupID]hal.BindGroup),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]hal.PipelineLayout),
		renderPipelines:  make(map[gpucore.RenderPipelineID]hal.RenderPipeline),
		computePipelines: make(map[gpucore.ComputePipelineID]hal.ComputePipeline),
		fence:            fence,
		spirv:            spirv,
	}
	d.nextID.Store(1)

	slogger().Info("native: device opened",
		"features", d.Features().String(),
		"submit_wait", o.submitWait,
		"spirv_from_wgsl", o.spirvFromWGSL)
	return d, nil
}

// NewFromProvider wraps the device shared by a host application.
// The provider must also implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*HALDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoHAL, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoHAL, hp.HalQueue())
	}
	return New(device, queue, opts...)
}

// newID generates a unique resource ID.
func (d *HALDevice) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// lookup returns the object registered under id.
func lookup[K ~uint64, V any](m map[K]V, id K, kind string) (V, error) {
	v, ok := m[id]
	if !ok {
		var zero V
		return zero, fmt.Errorf("%w: %s %d", ErrUnknownResource, kind, id)
	}
	return v, nil
}

// take removes and returns the object registered under id.
func take[K ~uint64, V any](d *HALDevice, m map[K]V, id K) (V, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := m[id]
	if ok {
		delete(m, id)
	}
	return v, ok
}

// register stores v under a fresh ID.
func register[K ~uint64, V any](d *HALDevice, m map[K]V, v V) K {
	id := K(d.newID())
	d.mu.Lock()
	m[id] = v
	d.mu.Unlock()
	return id
}

func (d *HALDevice) checkOpen() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Features returns the declared optional features that the HAL backend can
// express.
func (d *HALDevice) Features() gpucore.Features {
	return d.opts.features &^ (gpucore.FeaturePolygonModeLine | gpucore.FeaturePolygonModePoint)
}

// ShaderCacheLen returns the number of compiled WGSL sources currently cached.
func (d *HALDevice) ShaderCacheLen() int {
	return d.spirv.Len()
}

// === Buffers ===

// CreateBuffer creates a GPU buffer.
func (d *HALDevice) CreateBuffer(desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: buffer %q: size must be positive", desc.Label)
	}
	if limit := d.opts.limits.MaxBufferSize; limit > 0 && desc.Size > limit {
		return gpucore.InvalidID, fmt.Errorf("%w: buffer %q size %d > %d", ErrLimit, desc.Label, desc.Size, limit)
	}

	raw, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", desc.Label, err)
	}
	return register(d, d.buffers, &buffer{raw: raw, size: desc.Size}), nil
}

// DestroyBuffer releases a GPU buffer.
func (d *HALDevice) DestroyBuffer(id gpucore.BufferID) {
	if b, ok := take(d, d.buffers, id); ok {
		d.device.DestroyBuffer(b.raw)
	}
}

// WriteBuffer uploads data through the queue.
func (d *HALDevice) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.mu.RLock()
	b, err := lookup(d.buffers, id, "buffer")
	d.mu.RUnlock()
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("native: write of %d bytes at %d overflows buffer %d of %d bytes", len(data), offset, id, b.size)
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(b.raw, offset, data)
	}
	return nil
}

// ReadBuffer copies a buffer range into a staging buffer, waits for the GPU,
// and returns the bytes.
func (d *HALDevice) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	b, err := lookup(d.buffers, id, "buffer")
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if offset+size > b.size {
		return nil, fmt.Errorf("native: read past end of buffer %d", id)
	}
	if size == 0 {
		return []byte{}, nil
	}

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "gpukit_readback",
		Size:  size,
		Usage: readbackUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gpukit_readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("gpukit_readback"); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(b.raw, staging, []hal.BufferCopy{{SrcOffset: offset, DstOffset: 0, Size: size}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end encoding: %w", err)
	}

	value, err := d.submit(cmd, nil)
	if err != nil {
		return nil, err
	}
	if err := d.waitFor(value, d.opts.fenceTimeout); err != nil {
		return nil, err
	}

	out := make([]byte, size)
	if err := d.queue.ReadBuffer(staging, 0, out); err != nil {
		return nil, fmt.Errorf("native: readback: %w", err)
	}
	return out, nil
}

// === Shaders ===

// CreateShaderModule creates a shader module from WGSL or SPIR-V.
func (d *HALDevice) CreateShaderModule(desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	source, err := d.shaderSource(desc)
	if err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  desc.Label,
		Source: source,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create shader module %q: %w", desc.Label, err)
	}
	return register(d, d.shaders, raw), nil
}

// DestroyShaderModule releases a shader module.
func (d *HALDevice) DestroyShaderModule(id gpucore.ShaderModuleID) {
	if m, ok := take(d, d.shaders, id); ok {
		d.device.DestroyShaderModule(m)
	}
}

// === Layouts and Bind Groups ===

// CreateBindGroupLayout creates a bind group layout.
func (d *HALDevice) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: convertLayoutEntries(desc.Entries),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group layout %q: %w", desc.Label, err)
	}
	return register(d, d.bindGroupLayouts, raw), nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *HALDevice) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	if l, ok := take(d, d.bindGroupLayouts, id); ok {
		d.device.DestroyBindGroupLayout(l)
	}
}

// CreateBindGroup creates a bind group.
func (d *HALDevice) CreateBindGroup(desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.RLock()
	layout, err := lookup(d.bindGroupLayouts, desc.Layout, "bind group layout")
	if err != nil {
		d.mu.RUnlock()
		return gpucore.InvalidID, err
	}
	entries, err := d.convertGroupEntries(desc.Entries)
	d.mu.RUnlock()
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: bind group %q: %w", desc.Label, err)
	}

	raw, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create bind group %q: %w", desc.Label, err)
	}
	return register(d, d.bindGroups, raw), nil
}

// DestroyBindGroup releases a bind group.
func (d *HALDevice) DestroyBindGroup(id gpucore.BindGroupID) {
	if g, ok := take(d, d.bindGroups, id); ok {
		d.device.DestroyBindGroup(g)
	}
}

// CreatePipelineLayout creates a pipeline layout.
func (d *HALDevice) CreatePipelineLayout(desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.RLock()
	layouts := make([]hal.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, id := range desc.BindGroupLayouts {
		l, err := lookup(d.bindGroupLayouts, id, "bind group layout")
		if err != nil {
			d.mu.RUnlock()
			return gpucore.InvalidID, err
		}
		layouts[i] = l
	}
	d.mu.RUnlock()

	raw, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline layout %q: %w", desc.Label, err)
	}
	return register(d, d.pipelineLayouts, raw), nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (d *HALDevice) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	if l, ok := take(d, d.pipelineLayouts, id); ok {
		d.device.DestroyPipelineLayout(l)
	}
}

// === Pipelines ===

// CreateRenderPipeline creates a render pipeline.
func (d *HALDevice) CreateRenderPipeline(desc *gpucore.RenderPipelineDescriptor) (gpucore.RenderPipelineID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Primitive.PolygonMode != gpucore.PolygonModeFill {
		return gpucore.InvalidID, fmt.Errorf("%w: polygon mode %s", ErrUnsupported, desc.Primitive.PolygonMode)
	}
	halDesc, err := d.convertRenderPipeline(desc)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: render pipeline %q: %w", desc.Label, err)
	}
	raw, err := d.device.CreateRenderPipeline(halDesc)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create render pipeline %q: %w", desc.Label, err)
	}
	return register(d, d.renderPipelines, raw), nil
}

// DestroyRenderPipeline releases a render pipeline.
func (d *HALDevice) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	if p, ok := take(d, d.renderPipelines, id); ok {
		d.device.DestroyRenderPipeline(p)
	}
}

// CreateComputePipeline creates a compute pipeline.
func (d *HALDevice) CreateComputePipeline(desc *gpucore.ComputePipelineDescriptor) (gpucore.ComputePipelineID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.RLock()
	layout, layoutErr := lookup(d.pipelineLayouts, desc.Layout, "pipeline layout")
	module, moduleErr := lookup(d.shaders, desc.Module, "shader module")
	d.mu.RUnlock()
	if layoutErr != nil {
		return gpucore.InvalidID, layoutErr
	}
	if moduleErr != nil {
		return gpucore.InvalidID, moduleErr
	}

	raw, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create compute pipeline %q: %w", desc.Label, err)
	}
	return register(d, d.computePipelines, raw), nil
}

// DestroyComputePipeline releases a compute pipeline.
func (d *HALDevice) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	if p, ok := take(d, d.computePipelines, id); ok {
		d.device.DestroyComputePipeline(p)
	}
}

// Close waits for in-flight submissions and destroys every object the
// device still tracks. The wrapped hal.Device and hal.Queue are left open.
func (d *HALDevice) Close() error {
	if d.closed.Swap(true) {
		return nil
	}

	d.submitMu.Lock()
	var err error
	if d.signaled > 0 {
		if _, err = d.waitLocked(d.signaled, d.opts.fenceTimeout); err != nil {
			// Work still on the GPU is leaked rather than freed under it.
			slogger().Warn("native: close: pending submissions did not finish",
				"pending", len(d.inflight), "err", err)
		}
	}
	d.inflight = nil
	d.device.DestroyFence(d.fence)
	d.submitMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	for id, p := range d.renderPipelines {
		d.device.DestroyRenderPipeline(p)
		delete(d.renderPipelines, id)
	}
	for id, p := range d.computePipelines {
		d.device.DestroyComputePipeline(p)
		delete(d.computePipelines, id)
	}
	for id, l := range d.pipelineLayouts {
		d.device.DestroyPipelineLayout(l)
		delete(d.pipelineLayouts, id)
	}
	for id, g := range d.bindGroups {
		d.device.DestroyBindGroup(g)
		delete(d.bindGroups, id)
	}
	for id, l := range d.bindGroupLayouts {
		d.device.DestroyBindGroupLayout(l)
		delete(d.bindGroupLayouts, id)
	}
	for id, m := range d.shaders {
		d.device.DestroyShaderModule(m)
		delete(d.shaders, id)
	}
	for id, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, id)
	}
	for id, v := range d.views {
		d.device.DestroyTextureView(v)
		delete(d.views, id)
	}
	for id, t := range d.textures {
		d.device.DestroyTexture(t.raw)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.raw)
		delete(d.buffers, id)
	}
	d.spirv.Purge()

	slogger().Info("native: device closed")
	return err
}
