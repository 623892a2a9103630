// Package gputest provides a recording gpucore.Device for tests.
//
// Device keeps every created object and its descriptor, validates the
// references between them the way a real device would, and simulates buffer
// contents so uploads, clears and copies can be observed with ReadBuffer.
// Submitted command buffers are kept as ordered lists of commands.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpukit/gpucore"
)

// Errors returned by the fake device.
var (
	// ErrUnknownID is returned when a descriptor references a missing object.
	ErrUnknownID = errors.New("gputest: unknown id")

	// ErrValidation is returned for descriptors a real device would reject.
	ErrValidation = errors.New("gputest: validation failed")

	// ErrInjected is the default error for failures set with FailNext.
	ErrInjected = errors.New("gputest: injected failure")
)

// Kind names used in Created, Destroyed and Live.
const (
	KindBuffer          = "buffer"
	KindTexture         = "texture"
	KindTextureView     = "texture-view"
	KindSampler         = "sampler"
	KindShaderModule    = "shader-module"
	KindBindGroupLayout = "bind-group-layout"
	KindBindGroup       = "bind-group"
	KindPipelineLayout  = "pipeline-layout"
	KindRenderPipeline  = "render-pipeline"
	KindComputePipeline = "compute-pipeline"
)

// Device is a recording implementation of gpucore.Device.
// It is safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	features gpucore.Features
	nextID   uint64

	live      map[uint64]string
	created   map[string]int
	destroyed map[string]int
	failures  map[string]error

	buffers          map[gpucore.BufferID]*bufferState
	textures         map[gpucore.TextureID]gpucore.TextureDescriptor
	textureWrites    map[gpucore.TextureID]int
	views            map[gpucore.TextureViewID]viewState
	samplers         map[gpucore.SamplerID]gpucore.SamplerDescriptor
	modules          map[gpucore.ShaderModuleID]gpucore.ShaderModuleDescriptor
	bindGroupLayouts map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDescriptor
	bindGroups       map[gpucore.BindGroupID]gpucore.BindGroupDescriptor
	pipelineLayouts  map[gpucore.PipelineLayoutID]gpucore.PipelineLayoutDescriptor
	renderPipelines  map[gpucore.RenderPipelineID]gpucore.RenderPipelineDescriptor
	computePipelines map[gpucore.ComputePipelineID]gpucore.ComputePipelineDescriptor

	submitted []*CommandBuffer
}

type bufferState struct {
	desc gpucore.BufferDescriptor
	data []byte
}

type viewState struct {
	texture gpucore.TextureID
	desc    gpucore.TextureViewDescriptor
}

var _ gpucore.Device = (*Device)(nil)

// NewDevice creates a fake device with the given optional features.
func NewDevice(features gpucore.Features) *Device {
	return &Device{
		features:         features,
		nextID:           1,
		live:             make(map[uint64]string),
		created:          make(map[string]int),
		destroyed:        make(map[string]int),
		failures:         make(map[string]error),
		buffers:          make(map[gpucore.BufferID]*bufferState),
		textures:         make(map[gpucore.TextureID]gpucore.TextureDescriptor),
		textureWrites:    make(map[gpucore.TextureID]int),
		views:            make(map[gpucore.TextureViewID]viewState),
		samplers:         make(map[gpucore.SamplerID]gpucore.SamplerDescriptor),
		modules:          make(map[gpucore.ShaderModuleID]gpucore.ShaderModuleDescriptor),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]gpucore.BindGroupLayoutDescriptor),
		bindGroups:       make(map[gpucore.BindGroupID]gpucore.BindGroupDescriptor),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]gpucore.PipelineLayoutDescriptor),
		renderPipelines:  make(map[gpucore.RenderPipelineID]gpucore.RenderPipelineDescriptor),
		computePipelines: make(map[gpucore.ComputePipelineID]gpucore.ComputePipelineDescriptor),
	}
}

// FailNext makes the next call of the named method return err.
// A nil err selects ErrInjected. Method names are the gpucore.Device method
// names, for example "CreateRenderPipeline" or "Submit".
func (d *Device) FailNext(method string, err error) {
	if err == nil {
		err = ErrInjected
	}
	d.mu.Lock()
	d.failures[method] = err
	d.mu.Unlock()
}

// Created returns how many objects of kind were created.
func (d *Device) Created(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many objects of kind were destroyed.
func (d *Device) Destroyed(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Live returns how many objects of kind are alive.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, k := range d.live {
		if k == kind {
			n++
		}
	}
	return n
}

// IsLive reports whether id refers to a live object.
func (d *Device) IsLive(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.live[id]
	return ok
}

// Submitted returns the submitted command buffers in submission order.
func (d *Device) Submitted() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*CommandBuffer(nil), d.submitted...)
}

// LastSubmitted returns the most recent command buffer, or nil.
func (d *Device) LastSubmitted() *CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.submitted) == 0 {
		return nil
	}
	return d.submitted[len(d.submitted)-1]
}

// BindGroupLayout returns the descriptor a layout was created with.
func (d *Device) BindGroupLayout(id gpucore.BindGroupLayoutID) (gpucore.BindGroupLayoutDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.bindGroupLayouts[id]
	return desc, ok
}

// BindGroup returns the descriptor a bind group was created with.
func (d *Device) BindGroup(id gpucore.BindGroupID) (gpucore.BindGroupDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.bindGroups[id]
	return desc, ok
}

// RenderPipeline returns the descriptor a render pipeline was created with.
func (d *Device) RenderPipeline(id gpucore.RenderPipelineID) (gpucore.RenderPipelineDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.renderPipelines[id]
	return desc, ok
}

// TextureView returns the texture and descriptor a view was created with.
func (d *Device) TextureView(id gpucore.TextureViewID) (gpucore.TextureID, gpucore.TextureViewDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.views[id]
	return v.texture, v.desc, ok
}

// Sampler returns the descriptor a sampler was created with.
func (d *Device) Sampler(id gpucore.SamplerID) (gpucore.SamplerDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	desc, ok := d.samplers[id]
	return desc, ok
}

// TextureWrites returns the number of WriteTexture calls for a texture.
func (d *Device) TextureWrites(id gpucore.TextureID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textureWrites[id]
}

// BufferSize returns the size of a live buffer.
func (d *Device) BufferSize(id gpucore.BufferID) (uint64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return 0, false
	}
	return b.desc.Size, true
}

// alloc registers a new object. Caller must hold d.mu.
func (d *Device) alloc(kind string) uint64 {
	id := d.nextID
	d.nextID++
	d.live[id] = kind
	d.created[kind]++
	return id
}

// release unregisters an object. Caller must hold d.mu.
func (d *Device) release(id uint64, kind string) bool {
	if k, ok := d.live[id]; !ok || k != kind {
		return false
	}
	delete(d.live, id)
	d.destroyed[kind]++
	return true
}

// injected pops an injected failure. Caller must hold d.mu.
func (d *Device) injected(method string) error {
	err, ok := d.failures[method]
	if !ok {
		return nil
	}
	delete(d.failures, method)
	return err
}

// Features returns the features the device was created with.
func (d *Device) Features() gpucore.Features {
	return d.features
}

// CreateBuffer creates a zero-filled buffer.
func (d *Device) CreateBuffer(desc *gpucore.BufferDescriptor) (gpucore.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateBuffer"); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Size == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: zero-sized buffer %q", ErrValidation, desc.Label)
	}
	id := gpucore.BufferID(d.alloc(KindBuffer))
	d.buffers[id] = &bufferState{desc: *desc, data: make([]byte, desc.Size)}
	return id, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindBuffer) {
		delete(d.buffers, id)
	}
}

// WriteBuffer stores data in the simulated buffer contents.
func (d *Device) WriteBuffer(id gpucore.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("WriteBuffer"); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", ErrUnknownID, id)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write of %d bytes at %d overflows buffer of %d", ErrValidation, len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadBuffer returns a copy of the simulated buffer contents.
func (d *Device) ReadBuffer(id gpucore.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", ErrUnknownID, id)
	}
	if offset+size > uint64(len(b.data)) {
		return nil, fmt.Errorf("%w: read past end of buffer %d", ErrValidation, id)
	}
	return append([]byte(nil), b.data[offset:offset+size]...), nil
}

// CreateTexture creates a texture.
func (d *Device) CreateTexture(desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateTexture"); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: empty texture %q", ErrValidation, desc.Label)
	}
	id := gpucore.TextureID(d.alloc(KindTexture))
	d.textures[id] = *desc
	return id, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindTexture) {
		delete(d.textures, id)
	}
}

// WriteTexture records a texture upload.
func (d *Device) WriteTexture(id gpucore.TextureID, dst *gpucore.TextureWrite, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("WriteTexture"); err != nil {
		return err
	}
	desc, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownID, id)
	}
	mips := max(desc.MipLevelCount, 1)
	if dst.MipLevel >= mips {
		return fmt.Errorf("%w: mip level %d of %d", ErrValidation, dst.MipLevel, mips)
	}
	rows := dst.RowsPerImage
	if rows == 0 {
		rows = dst.Height
	}
	need := uint64(dst.BytesPerRow) * uint64(rows) * uint64(max(dst.DepthOrArrayLayers, 1))
	if uint64(len(data)) < need {
		return fmt.Errorf("%w: texture data of %d bytes, need %d", ErrValidation, len(data), need)
	}
	d.textureWrites[id]++
	return nil
}

// CreateTextureView creates a view into a live texture.
func (d *Device) CreateTextureView(texture gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateTextureView"); err != nil {
		return gpucore.InvalidID, err
	}
	tex, ok := d.textures[texture]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %d", ErrUnknownID, texture)
	}
	mips := max(tex.MipLevelCount, 1)
	if desc.BaseMipLevel >= mips || desc.BaseMipLevel+desc.MipLevelCount > mips {
		return gpucore.InvalidID, fmt.Errorf("%w: mip range %d+%d out of %d", ErrValidation, desc.BaseMipLevel, desc.MipLevelCount, mips)
	}
	id := gpucore.TextureViewID(d.alloc(KindTextureView))
	d.views[id] = viewState{texture: texture, desc: *desc}
	return id, nil
}

// DestroyTextureView releases a texture view.
func (d *Device) DestroyTextureView(id gpucore.TextureViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindTextureView) {
		delete(d.views, id)
	}
}

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateSampler"); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.SamplerID(d.alloc(KindSampler))
	d.samplers[id] = *desc
	return id, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindSampler) {
		delete(d.samplers, id)
	}
}

// CreateShaderModule creates a shader module.
func (d *Device) CreateShaderModule(desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateShaderModule"); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.WGSL == "" && len(desc.SPIRV) == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: empty shader source %q", ErrValidation, desc.Label)
	}
	id := gpucore.ShaderModuleID(d.alloc(KindShaderModule))
	d.modules[id] = *desc
	return id, nil
}

// DestroyShaderModule releases a shader module.
func (d *Device) DestroyShaderModule(id gpucore.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindShaderModule) {
		delete(d.modules, id)
	}
}

// CreateBindGroupLayout creates a bind group layout.
// Duplicate binding indices are rejected.
func (d *Device) CreateBindGroupLayout(desc *gpucore.BindGroupLayoutDescriptor) (gpucore.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateBindGroupLayout"); err != nil {
		return gpucore.InvalidID, err
	}
	seen := make(map[uint32]bool, len(desc.Entries))
	for _, e := range desc.Entries {
		if seen[e.Binding] {
			return gpucore.InvalidID, fmt.Errorf("%w: duplicate binding %d", ErrValidation, e.Binding)
		}
		seen[e.Binding] = true
	}
	id := gpucore.BindGroupLayoutID(d.alloc(KindBindGroupLayout))
	desc2 := *desc
	desc2.Entries = append([]gpucore.BindGroupLayoutEntry(nil), desc.Entries...)
	d.bindGroupLayouts[id] = desc2
	return id, nil
}

// DestroyBindGroupLayout releases a bind group layout.
func (d *Device) DestroyBindGroupLayout(id gpucore.BindGroupLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindBindGroupLayout) {
		delete(d.bindGroupLayouts, id)
	}
}

// CreateBindGroup creates a bind group after checking every entry against
// the layout.
func (d *Device) CreateBindGroup(desc *gpucore.BindGroupDescriptor) (gpucore.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateBindGroup"); err != nil {
		return gpucore.InvalidID, err
	}
	layout, ok := d.bindGroupLayouts[desc.Layout]
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownID, desc.Layout)
	}
	if len(layout.Entries) != len(desc.Entries) {
		return gpucore.InvalidID, fmt.Errorf("%w: %d entries for layout with %d", ErrValidation, len(desc.Entries), len(layout.Entries))
	}
	for i, e := range desc.Entries {
		if err := d.checkEntry(layout.Entries[i], e); err != nil {
			return gpucore.InvalidID, err
		}
	}
	id := gpucore.BindGroupID(d.alloc(KindBindGroup))
	desc2 := *desc
	desc2.Entries = append([]gpucore.BindGroupEntry(nil), desc.Entries...)
	d.bindGroups[id] = desc2
	return id, nil
}

// checkEntry validates one bind group entry. Caller must hold d.mu.
func (d *Device) checkEntry(le gpucore.BindGroupLayoutEntry, e gpucore.BindGroupEntry) error {
	if le.Binding != e.Binding {
		return fmt.Errorf("%w: entry binding %d does not match layout binding %d", ErrValidation, e.Binding, le.Binding)
	}
	switch le.Kind {
	case gpucore.BindingKindBuffer:
		b, ok := d.buffers[e.Buffer]
		if !ok {
			return fmt.Errorf("%w: buffer %d at binding %d", ErrUnknownID, e.Buffer, e.Binding)
		}
		if e.Offset+e.Size > b.desc.Size {
			return fmt.Errorf("%w: binding %d range exceeds buffer", ErrValidation, e.Binding)
		}
	case gpucore.BindingKindTexture, gpucore.BindingKindStorageTexture:
		if _, ok := d.views[e.TextureView]; !ok {
			return fmt.Errorf("%w: texture view %d at binding %d", ErrUnknownID, e.TextureView, e.Binding)
		}
	case gpucore.BindingKindSampler:
		if _, ok := d.samplers[e.Sampler]; !ok {
			return fmt.Errorf("%w: sampler %d at binding %d", ErrUnknownID, e.Sampler, e.Binding)
		}
	default:
		return fmt.Errorf("%w: binding %d has no kind", ErrValidation, e.Binding)
	}
	return nil
}

// DestroyBindGroup releases a bind group.
func (d *Device) DestroyBindGroup(id gpucore.BindGroupID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindBindGroup) {
		delete(d.bindGroups, id)
	}
}

// CreatePipelineLayout creates a pipeline layout.
func (d *Device) CreatePipelineLayout(desc *gpucore.PipelineLayoutDescriptor) (gpucore.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreatePipelineLayout"); err != nil {
		return gpucore.InvalidID, err
	}
	for _, l := range desc.BindGroupLayouts {
		if _, ok := d.bindGroupLayouts[l]; !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: bind group layout %d", ErrUnknownID, l)
		}
	}
	id := gpucore.PipelineLayoutID(d.alloc(KindPipelineLayout))
	desc2 := *desc
	desc2.BindGroupLayouts = append([]gpucore.BindGroupLayoutID(nil), desc.BindGroupLayouts...)
	d.pipelineLayouts[id] = desc2
	return id, nil
}

// DestroyPipelineLayout releases a pipeline layout.
func (d *Device) DestroyPipelineLayout(id gpucore.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindPipelineLayout) {
		delete(d.pipelineLayouts, id)
	}
}

// CreateRenderPipeline creates a render pipeline.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDescriptor) (gpucore.RenderPipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateRenderPipeline"); err != nil {
		return gpucore.InvalidID, err
	}
	if _, ok := d.pipelineLayouts[desc.Layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", ErrUnknownID, desc.Layout)
	}
	if _, ok := d.modules[desc.Vertex.Module]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: vertex module %d", ErrUnknownID, desc.Vertex.Module)
	}
	if desc.Fragment != nil {
		if _, ok := d.modules[desc.Fragment.Module]; !ok {
			return gpucore.InvalidID, fmt.Errorf("%w: fragment module %d", ErrUnknownID, desc.Fragment.Module)
		}
	}
	if need := desc.Primitive.PolygonMode.RequiredFeature(); !d.features.Has(need) {
		return gpucore.InvalidID, fmt.Errorf("%w: polygon mode %v requires %v", ErrValidation, desc.Primitive.PolygonMode, need)
	}
	id := gpucore.RenderPipelineID(d.alloc(KindRenderPipeline))
	d.renderPipelines[id] = *desc
	return id, nil
}

// DestroyRenderPipeline releases a render pipeline.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindRenderPipeline) {
		delete(d.renderPipelines, id)
	}
}

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(desc *gpucore.ComputePipelineDescriptor) (gpucore.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateComputePipeline"); err != nil {
		return gpucore.InvalidID, err
	}
	if _, ok := d.pipelineLayouts[desc.Layout]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: pipeline layout %d", ErrUnknownID, desc.Layout)
	}
	if _, ok := d.modules[desc.Module]; !ok {
		return gpucore.InvalidID, fmt.Errorf("%w: compute module %d", ErrUnknownID, desc.Module)
	}
	id := gpucore.ComputePipelineID(d.alloc(KindComputePipeline))
	d.computePipelines[id] = *desc
	return id, nil
}

// DestroyComputePipeline releases a compute pipeline.
func (d *Device) DestroyComputePipeline(id gpucore.ComputePipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.release(uint64(id), KindComputePipeline) {
		delete(d.computePipelines, id)
	}
}

// CreateCommandEncoder returns a recording command encoder.
func (d *Device) CreateCommandEncoder(label string) (gpucore.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateCommandEncoder"); err != nil {
		return nil, err
	}
	return &CommandEncoder{device: d, buf: &CommandBuffer{label: label}}, nil
}

// Submit stores the command buffer and applies its buffer clears and copies
// to the simulated contents.
func (d *Device) Submit(cmd gpucore.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("Submit"); err != nil {
		return err
	}
	cb, ok := cmd.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("%w: foreign command buffer %T", ErrValidation, cmd)
	}
	if cb.submitted {
		return fmt.Errorf("%w: command buffer %q submitted twice", ErrValidation, cb.label)
	}
	cb.submitted = true
	for _, op := range cb.transfers {
		op(d)
	}
	d.submitted = append(d.submitted, cb)
	return nil
}
