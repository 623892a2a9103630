package gpukit

import (
	"fmt"
	"slices"

	"github.com/gogpu/gpukit/gpucore"
)

// binding is one (slot, visibility, resource) triple of a bind group.
type binding struct {
	slot       uint32
	visibility gpucore.ShaderStages
	kind       gpucore.BindingKind

	buffer  BufferBinding
	size    uint64
	texture TextureBinding
	sampler Sampler
}

// BindGroup describes a set of resources bound to consecutive shader slots.
//
// A BindGroup is pure data; no device object exists until it is resolved,
// normally during Submit. Two bind groups with the same label, slots,
// visibilities and resources resolve to the same device bind group.
type BindGroup struct {
	label    string
	bindings []binding
}

// BindGroupBuilder builds a BindGroup.
//
// Example:
//
//	group := gpukit.NewBindGroupBuilder().
//	    Buffer(0, gpucore.ShaderStageVertex, uniforms.UniformBinding(), 0).
//	    Texture(1, gpucore.ShaderStageFragment, albedo.TextureBinding()).
//	    Sampler(2, gpucore.ShaderStageFragment, gpukit.NewSamplerBuilder().Build()).
//	    Build()
type BindGroupBuilder struct {
	g BindGroup
}

// NewBindGroupBuilder returns an empty builder.
func NewBindGroupBuilder() *BindGroupBuilder {
	return &BindGroupBuilder{}
}

// Label sets the optional debug name.
func (b *BindGroupBuilder) Label(label string) *BindGroupBuilder {
	b.g.label = label
	return b
}

// Buffer binds a buffer at slot. A size of 0 binds the whole buffer.
func (b *BindGroupBuilder) Buffer(slot uint32, visibility gpucore.ShaderStages, buf BufferBinding, size uint64) *BindGroupBuilder {
	b.g.bindings = append(b.g.bindings, binding{
		slot:       slot,
		visibility: visibility,
		kind:       gpucore.BindingKindBuffer,
		buffer:     buf,
		size:       size,
	})
	return b
}

// Texture binds a sampled or storage texture at slot.
func (b *BindGroupBuilder) Texture(slot uint32, visibility gpucore.ShaderStages, tex TextureBinding) *BindGroupBuilder {
	kind := gpucore.BindingKindTexture
	if tex.storage {
		kind = gpucore.BindingKindStorageTexture
	}
	b.g.bindings = append(b.g.bindings, binding{
		slot:       slot,
		visibility: visibility,
		kind:       kind,
		texture:    tex,
	})
	return b
}

// Sampler binds a sampler at slot.
func (b *BindGroupBuilder) Sampler(slot uint32, visibility gpucore.ShaderStages, s Sampler) *BindGroupBuilder {
	b.g.bindings = append(b.g.bindings, binding{
		slot:       slot,
		visibility: visibility,
		kind:       gpucore.BindingKindSampler,
		sampler:    s,
	})
	return b
}

// Build returns the bind group with its bindings in slot order.
func (b *BindGroupBuilder) Build() BindGroup {
	g := BindGroup{label: b.g.label, bindings: slices.Clone(b.g.bindings)}
	slices.SortStableFunc(g.bindings, func(x, y binding) int {
		return int(x.slot) - int(y.slot)
	})
	return g
}

// Label returns the debug name of the bind group.
func (g BindGroup) Label() string { return g.label }

// Len returns the number of bindings.
func (g BindGroup) Len() int { return len(g.bindings) }

// BuildLayout derives the layout of the bind group.
//
// The layout depends only on each binding's slot, visibility and resource
// kind, never on which buffer, texture or sampler is bound.
func (g BindGroup) BuildLayout() BindGroupLayout {
	entries := make([]gpucore.BindGroupLayoutEntry, len(g.bindings))
	for i, b := range g.bindings {
		switch b.kind {
		case gpucore.BindingKindBuffer:
			entries[i] = gpucore.BindGroupLayoutEntry{
				Binding:          b.slot,
				Visibility:       b.visibility,
				Kind:             gpucore.BindingKindBuffer,
				BufferType:       b.buffer.bindingType,
				HasDynamicOffset: b.buffer.dynamicOffset,
				MinBindingSize:   b.buffer.minBindingSize,
			}
		case gpucore.BindingKindTexture, gpucore.BindingKindStorageTexture:
			entries[i] = b.texture.layoutEntry(b.slot, b.visibility)
		case gpucore.BindingKindSampler:
			entries[i] = gpucore.BindGroupLayoutEntry{
				Binding:     b.slot,
				Visibility:  b.visibility,
				Kind:        gpucore.BindingKindSampler,
				SamplerType: b.sampler.BindingType(),
			}
		}
	}
	return BindGroupLayout{entries: entries}
}

// key encodes the label, the shape and the identity of every resource.
// Buffers contribute their storage generation so that a grown buffer
// never matches a bind group created for its old storage.
func (g BindGroup) key() string {
	var w keyWriter
	w.tag(tagBindGroup)
	w.str(g.label)
	w.u32(uint32(len(g.bindings)))
	for _, b := range g.bindings {
		w.u32(b.slot)
		w.u32(uint32(b.visibility))
		w.u8(uint8(b.kind))
		switch b.kind {
		case gpucore.BindingKindBuffer:
			var id, gen uint64
			if buf := b.buffer.buffer; buf != nil {
				_, _, gen = buf.state()
				id = buf.id
			}
			w.tag(tagBufferBinding)
			w.u64(id)
			w.u64(gen)
			w.u8(uint8(b.buffer.bindingType))
			w.bool(b.buffer.dynamicOffset)
			w.u64(b.buffer.minBindingSize)
			w.u64(b.size)
		case gpucore.BindingKindTexture, gpucore.BindingKindStorageTexture:
			w.tag(tagTextureBinding)
			if b.texture.texture != nil {
				w.raw(b.texture.texture.viewKey())
			}
		case gpucore.BindingKindSampler:
			w.tag(tagSamplerBinding)
			w.raw(b.sampler.key())
		}
	}
	return w.String()
}

// validate reports bindings without a resource, such as a zero
// BufferBinding or TextureBinding, and bindings of released resources.
func (g BindGroup) validate() error {
	for _, b := range g.bindings {
		switch b.kind {
		case gpucore.BindingKindBuffer:
			switch buf := b.buffer.buffer; {
			case buf == nil:
				return fmt.Errorf("%w: slot %d has no buffer", ErrConfiguration, b.slot)
			case buf.isReleased():
				return fmt.Errorf("slot %d: buffer %q: %w", b.slot, buf.Label(), ErrReleased)
			}
		case gpucore.BindingKindTexture, gpucore.BindingKindStorageTexture:
			switch tex := b.texture.texture; {
			case tex == nil:
				return fmt.Errorf("%w: slot %d has no texture", ErrConfiguration, b.slot)
			case tex.core.released.Load():
				return fmt.Errorf("slot %d: texture %q: %w", b.slot, tex.Label(), ErrReleased)
			}
		}
	}
	return nil
}

// Resolve returns the device bind group, creating it on first use.
// The returned handle carries a reference owned by the caller.
func (g BindGroup) Resolve(ctx *Context) (*Shared[gpucore.BindGroupID], error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.bindGroup(g)
}

// bindGroup resolves g through the bind group cache and returns it with an
// extra reference. Caller must hold c.mu.
func (c *Context) bindGroup(g BindGroup) (*Shared[gpucore.BindGroupID], error) {
	if err := g.validate(); err != nil {
		return nil, fmt.Errorf("resolve bind group %q: %w", g.label, err)
	}
	h, err := c.bindGroups.GetOrInsert(g.key(), func() (*Shared[gpucore.BindGroupID], error) {
		return c.createBindGroup(g)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve bind group %q: %w", g.label, err)
	}
	return h.Retain(), nil
}

// createBindGroup resolves the layout, views and samplers of g and creates
// the device bind group. The bind group keeps a reference to each of them.
func (c *Context) createBindGroup(g BindGroup) (*Shared[gpucore.BindGroupID], error) {
	layout, err := c.bindGroupLayout(g.BuildLayout())
	if err != nil {
		return nil, err
	}

	var (
		buffers  []*Shared[gpucore.BufferID]
		views    []*Shared[gpucore.TextureViewID]
		samplers []*Shared[gpucore.SamplerID]
	)
	release := func() {
		layout.Release()
		releaseAll(buffers)
		releaseAll(views)
		releaseAll(samplers)
	}

	entries := make([]gpucore.BindGroupEntry, len(g.bindings))
	for i, b := range g.bindings {
		entries[i].Binding = b.slot
		switch b.kind {
		case gpucore.BindingKindBuffer:
			h, err := b.buffer.buffer.retain()
			if err != nil {
				release()
				return nil, err
			}
			buffers = append(buffers, h)
			entries[i].Buffer = h.ID()
			entries[i].Size = b.size
		case gpucore.BindingKindTexture, gpucore.BindingKindStorageTexture:
			v, err := c.textureView(b.texture.texture)
			if err != nil {
				release()
				return nil, err
			}
			views = append(views, v)
			entries[i].TextureView = v.ID()
		case gpucore.BindingKindSampler:
			s, err := c.sampler(b.sampler)
			if err != nil {
				release()
				return nil, err
			}
			samplers = append(samplers, s)
			entries[i].Sampler = s.ID()
		}
	}

	id, err := c.device.CreateBindGroup(&gpucore.BindGroupDescriptor{
		Label:   c.label(g.label),
		Layout:  layout.ID(),
		Entries: entries,
	})
	if err != nil {
		release()
		return nil, configError(err)
	}
	c.logger().Debug("gpukit: bind group created", "label", g.label, "bindings", len(entries))
	return newShared(id, func(id gpucore.BindGroupID) {
		c.device.DestroyBindGroup(id)
		release()
	}), nil
}

// BindGroupLayout is the derived shape of a bind group.
type BindGroupLayout struct {
	entries []gpucore.BindGroupLayoutEntry
}

// Entries returns a copy of the layout entries in slot order.
func (l BindGroupLayout) Entries() []gpucore.BindGroupLayoutEntry {
	return slices.Clone(l.entries)
}

// Equal reports whether l and o describe the same layout.
func (l BindGroupLayout) Equal(o BindGroupLayout) bool {
	return slices.Equal(l.entries, o.entries)
}

func (l BindGroupLayout) key() string {
	var w keyWriter
	w.tag(tagBindGroupLayout)
	w.u32(uint32(len(l.entries)))
	for _, e := range l.entries {
		w.u32(e.Binding)
		w.u32(uint32(e.Visibility))
		w.u8(uint8(e.Kind))
		w.u8(uint8(e.BufferType))
		w.bool(e.HasDynamicOffset)
		w.u64(e.MinBindingSize)
		w.u8(uint8(e.SampleType))
		w.bool(e.Multisampled)
		w.u32(uint32(e.ViewDimension))
		w.u8(uint8(e.StorageAccess))
		w.u32(uint32(e.StorageFormat))
		w.u8(uint8(e.SamplerType))
	}
	return w.String()
}

// Resolve returns the device bind group layout, creating it on first use.
// The returned handle carries a reference owned by the caller.
func (l BindGroupLayout) Resolve(ctx *Context) (*Shared[gpucore.BindGroupLayoutID], error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.bindGroupLayout(l)
}

// bindGroupLayout resolves l through the layout cache and returns it with
// an extra reference. Caller must hold c.mu.
func (c *Context) bindGroupLayout(l BindGroupLayout) (*Shared[gpucore.BindGroupLayoutID], error) {
	h, err := c.bindGroupLayouts.GetOrInsert(l.key(), func() (*Shared[gpucore.BindGroupLayoutID], error) {
		id, err := c.device.CreateBindGroupLayout(&gpucore.BindGroupLayoutDescriptor{
			Label:   c.label("bind group layout"),
			Entries: slices.Clone(l.entries),
		})
		if err != nil {
			return nil, configError(err)
		}
		c.logger().Debug("gpukit: bind group layout created", "entries", len(l.entries))
		return newShared(id, c.device.DestroyBindGroupLayout), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve bind group layout: %w", err)
	}
	return h.Retain(), nil
}
