//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// === Type Conversion Helpers ===

const readbackUsage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst

const zeroFillUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

// convertLayoutEntries converts gpucore layout entries to gputypes entries.
func convertLayoutEntries(entries []gpucore.BindGroupLayoutEntry) []gputypes.BindGroupLayoutEntry {
	out := make([]gputypes.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		r := gputypes.BindGroupLayoutEntry{Binding: e.Binding}
		if e.Visibility&gpucore.ShaderStageVertex != 0 {
			r.Visibility |= gputypes.ShaderStageVertex
		}
		if e.Visibility&gpucore.ShaderStageFragment != 0 {
			r.Visibility |= gputypes.ShaderStageFragment
		}
		if e.Visibility&gpucore.ShaderStageCompute != 0 {
			r.Visibility |= gputypes.ShaderStageCompute
		}

		switch e.Kind {
		case gpucore.BindingKindBuffer:
			r.Buffer = &gputypes.BufferBindingLayout{
				Type:             convertBufferBindingType(e.BufferType),
				HasDynamicOffset: e.HasDynamicOffset,
				MinBindingSize:   e.MinBindingSize,
			}
		case gpucore.BindingKindTexture:
			r.Texture = &gputypes.TextureBindingLayout{
				SampleType:    convertSampleType(e.SampleType),
				ViewDimension: e.ViewDimension,
				Multisampled:  e.Multisampled,
			}
		case gpucore.BindingKindStorageTexture:
			r.Storage = &gputypes.StorageTextureBindingLayout{
				Access:        convertStorageAccess(e.StorageAccess),
				Format:        e.StorageFormat,
				ViewDimension: e.ViewDimension,
			}
		case gpucore.BindingKindSampler:
			r.Sampler = &gputypes.SamplerBindingLayout{Type: convertSamplerBindingType(e.SamplerType)}
		}
		out[i] = r
	}
	return out
}

// convertGroupEntries resolves bind group entry IDs to HAL handles.
// Must be called with mu.RLock held.
func (d *HALDevice) convertGroupEntries(entries []gpucore.BindGroupEntry) ([]gputypes.BindGroupEntry, error) {
	out := make([]gputypes.BindGroupEntry, len(entries))
	for i, e := range entries {
		r := gputypes.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != gpucore.InvalidID:
			b, err := lookup(d.buffers, e.Buffer, "buffer")
			if err != nil {
				return nil, fmt.Errorf("binding %d: %w", e.Binding, err)
			}
			size := e.Size
			if size == 0 && e.Offset < b.size {
				size = b.size - e.Offset
			}
			r.Resource = gputypes.BufferBinding{Buffer: b.raw.NativeHandle(), Offset: e.Offset, Size: size}
		case e.TextureView != gpucore.InvalidID:
			v, err := lookup(d.views, e.TextureView, "texture view")
			if err != nil {
				return nil, fmt.Errorf("binding %d: %w", e.Binding, err)
			}
			r.Resource = gputypes.TextureViewBinding{TextureView: v.NativeHandle()}
		case e.Sampler != gpucore.InvalidID:
			s, err := lookup(d.samplers, e.Sampler, "sampler")
			if err != nil {
				return nil, fmt.Errorf("binding %d: %w", e.Binding, err)
			}
			r.Resource = gputypes.SamplerBinding{Sampler: s.NativeHandle()}
		default:
			return nil, fmt.Errorf("binding %d: no resource", e.Binding)
		}
		out[i] = r
	}
	return out, nil
}

// convertRenderPipeline resolves a render pipeline descriptor.
func (d *HALDevice) convertRenderPipeline(desc *gpucore.RenderPipelineDescriptor) (*hal.RenderPipelineDescriptor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	layout, err := lookup(d.pipelineLayouts, desc.Layout, "pipeline layout")
	if err != nil {
		return nil, err
	}
	vs, err := lookup(d.shaders, desc.Vertex.Module, "shader module")
	if err != nil {
		return nil, err
	}

	out := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    convertVertexBuffers(desc.Vertex.Buffers),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Primitive.Topology,
			FrontFace: desc.Primitive.FrontFace,
			CullMode:  desc.Primitive.CullMode,
		},
		Multisample: gputypes.MultisampleState{
			Count:                  atLeastOne(desc.Multisample.Count),
			Mask:                   sampleMask(desc.Multisample.Mask),
			AlphaToCoverageEnabled: desc.Multisample.AlphaToCoverageEnabled,
		},
	}

	if f := desc.Fragment; f != nil {
		fs, err := lookup(d.shaders, f.Module, "shader module")
		if err != nil {
			return nil, err
		}
		targets := make([]gputypes.ColorTargetState, len(f.Targets))
		for i, t := range f.Targets {
			targets[i] = gputypes.ColorTargetState{
				Format:    t.Format,
				Blend:     convertBlend(t.Blend),
				WriteMask: convertWriteMask(t.WriteMask),
			}
		}
		out.Fragment = &hal.FragmentState{
			Module:     fs,
			EntryPoint: f.EntryPoint,
			Targets:    targets,
		}
	}

	if ds := desc.DepthStencil; ds != nil {
		keep := hal.StencilFaceState{
			Compare:     gputypes.CompareFunctionAlways,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		out.DepthStencil = &hal.DepthStencilState{
			Format:            ds.Format,
			DepthWriteEnabled: ds.DepthWriteEnabled,
			DepthCompare:      ds.DepthCompare,
			StencilFront:      keep,
			StencilBack:       keep,
			StencilReadMask:   0xFF,
			StencilWriteMask:  0xFF,
		}
	}
	return out, nil
}

func convertVertexBuffers(layouts []gpucore.VertexBufferLayout) []gputypes.VertexBufferLayout {
	if len(layouts) == 0 {
		return nil
	}
	out := make([]gputypes.VertexBufferLayout, len(layouts))
	for i, l := range layouts {
		attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = gputypes.VertexAttribute{
				Format:         a.Format,
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = gputypes.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    l.StepMode,
			Attributes:  attrs,
		}
	}
	return out
}

func convertBlend(b *gpucore.BlendState) *gputypes.BlendState {
	if b == nil {
		return nil
	}
	return &gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: b.Color.SrcFactor,
			DstFactor: b.Color.DstFactor,
			Operation: b.Color.Operation,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: b.Alpha.SrcFactor,
			DstFactor: b.Alpha.DstFactor,
			Operation: b.Alpha.Operation,
		},
	}
}

func convertWriteMask(m gpucore.ColorWriteMask) gputypes.ColorWriteMask {
	if m == gpucore.ColorWriteAll {
		return gputypes.ColorWriteMaskAll
	}
	var out gputypes.ColorWriteMask
	if m&gpucore.ColorWriteRed != 0 {
		out |= gputypes.ColorWriteMaskRed
	}
	if m&gpucore.ColorWriteGreen != 0 {
		out |= gputypes.ColorWriteMaskGreen
	}
	if m&gpucore.ColorWriteBlue != 0 {
		out |= gputypes.ColorWriteMaskBlue
	}
	if m&gpucore.ColorWriteAlpha != 0 {
		out |= gputypes.ColorWriteMaskAlpha
	}
	return out
}

func sampleMask(m uint32) uint32 {
	if m == 0 {
		return 0xFFFFFFFF
	}
	return m
}

func convertBufferBindingType(t gpucore.BufferBindingType) gputypes.BufferBindingType {
	switch t {
	case gpucore.BufferBindingTypeStorage:
		return gputypes.BufferBindingTypeStorage
	case gpucore.BufferBindingTypeReadOnlyStorage:
		return gputypes.BufferBindingTypeReadOnlyStorage
	default:
		return gputypes.BufferBindingTypeUniform
	}
}

func convertSampleType(t gpucore.TextureSampleType) gputypes.TextureSampleType {
	switch t {
	case gpucore.TextureSampleTypeUnfilterableFloat:
		return gputypes.TextureSampleTypeUnfilterableFloat
	case gpucore.TextureSampleTypeDepth:
		return gputypes.TextureSampleTypeDepth
	case gpucore.TextureSampleTypeSint:
		return gputypes.TextureSampleTypeSint
	case gpucore.TextureSampleTypeUint:
		return gputypes.TextureSampleTypeUint
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

func convertStorageAccess(a gpucore.StorageTextureAccess) gputypes.StorageTextureAccess {
	switch a {
	case gpucore.StorageTextureAccessReadOnly:
		return gputypes.StorageTextureAccessReadOnly
	case gpucore.StorageTextureAccessReadWrite:
		return gputypes.StorageTextureAccessReadWrite
	default:
		return gputypes.StorageTextureAccessWriteOnly
	}
}

func convertSamplerBindingType(t gpucore.SamplerBindingType) gputypes.SamplerBindingType {
	switch t {
	case gpucore.SamplerBindingTypeNonFiltering:
		return gputypes.SamplerBindingTypeNonFiltering
	case gpucore.SamplerBindingTypeComparison:
		return gputypes.SamplerBindingTypeComparison
	default:
		return gputypes.SamplerBindingTypeFiltering
	}
}

func convertAddressMode(m gpucore.AddressMode) gputypes.AddressMode {
	switch m {
	case gpucore.AddressModeRepeat:
		return gputypes.AddressModeRepeat
	case gpucore.AddressModeMirrorRepeat:
		return gputypes.AddressModeMirrorRepeat
	default:
		return gputypes.AddressModeClampToEdge
	}
}

func convertFilterMode(m gpucore.FilterMode) gputypes.FilterMode {
	if m == gpucore.FilterModeLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func convertIndexFormat(f gpucore.IndexFormat) gputypes.IndexFormat {
	if f == gpucore.IndexFormatUint32 {
		return gputypes.IndexFormatUint32
	}
	return gputypes.IndexFormatUint16
}
