package gpucore

import "strings"

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// TextureViewID is an opaque handle to a texture view.
type TextureViewID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// ID is the set of resource ID types.
type ID interface {
	BufferID | TextureID | TextureViewID | SamplerID | ShaderModuleID |
		BindGroupLayoutID | BindGroupID | PipelineLayoutID |
		RenderPipelineID | ComputePipelineID
}

// Features is a bitmask of optional device capabilities.
type Features uint64

// Optional device features.
const (
	// FeaturePolygonModeLine allows PolygonModeLine in render pipelines.
	FeaturePolygonModeLine Features = 1 << iota

	// FeaturePolygonModePoint allows PolygonModePoint in render pipelines.
	FeaturePolygonModePoint

	// FeatureDepthClipControl allows disabling depth clipping.
	FeatureDepthClipControl

	// FeatureTimestampQuery allows timestamp queries.
	FeatureTimestampQuery
)

// Has reports whether all features in want are present.
func (f Features) Has(want Features) bool {
	return f&want == want
}

// String returns a "|"-separated list of feature names.
func (f Features) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, n := range []struct {
		bit  Features
		name string
	}{
		{FeaturePolygonModeLine, "polygon-mode-line"},
		{FeaturePolygonModePoint, "polygon-mode-point"},
		{FeatureDepthClipControl, "depth-clip-control"},
		{FeatureTimestampQuery, "timestamp-query"},
	} {
		if f&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ShaderStages is a bitmask of shader stages a binding is visible to.
type ShaderStages uint32

// Shader stages.
const (
	ShaderStageVertex ShaderStages = 1 << iota
	ShaderStageFragment
	ShaderStageCompute

	ShaderStageNone ShaderStages = 0
)

// BindingKind tags the resource type of a bind group layout entry.
type BindingKind uint8

// Binding kinds.
const (
	BindingKindBuffer BindingKind = iota + 1
	BindingKindTexture
	BindingKindStorageTexture
	BindingKindSampler
)

// String returns the binding kind name.
func (k BindingKind) String() string {
	switch k {
	case BindingKindBuffer:
		return "buffer"
	case BindingKindTexture:
		return "texture"
	case BindingKindStorageTexture:
		return "storage-texture"
	case BindingKindSampler:
		return "sampler"
	default:
		return "undefined"
	}
}

// BufferBindingType specifies how a buffer is bound.
type BufferBindingType uint8

// Buffer binding types.
const (
	// BufferBindingTypeUniform is a uniform buffer binding.
	BufferBindingTypeUniform BufferBindingType = iota + 1

	// BufferBindingTypeStorage is a storage buffer binding (read-write).
	BufferBindingTypeStorage

	// BufferBindingTypeReadOnlyStorage is a read-only storage buffer binding.
	BufferBindingTypeReadOnlyStorage
)

// TextureSampleType specifies the type of values produced by sampling a texture.
type TextureSampleType uint8

// Texture sample types.
const (
	// TextureSampleTypeFloat is a filterable float texture.
	TextureSampleTypeFloat TextureSampleType = iota + 1

	// TextureSampleTypeUnfilterableFloat is a float texture that can not be filtered.
	TextureSampleTypeUnfilterableFloat

	// TextureSampleTypeDepth is a depth texture.
	TextureSampleTypeDepth

	// TextureSampleTypeSint is a signed integer texture.
	TextureSampleTypeSint

	// TextureSampleTypeUint is an unsigned integer texture.
	TextureSampleTypeUint
)

// SamplerBindingType specifies the filtering class of a sampler binding.
type SamplerBindingType uint8

// Sampler binding types.
const (
	SamplerBindingTypeFiltering SamplerBindingType = iota + 1
	SamplerBindingTypeNonFiltering
	SamplerBindingTypeComparison
)

// StorageTextureAccess specifies the access mode of a storage texture binding.
type StorageTextureAccess uint8

// Storage texture access modes.
const (
	StorageTextureAccessWriteOnly StorageTextureAccess = iota + 1
	StorageTextureAccessReadOnly
	StorageTextureAccessReadWrite
)

// AddressMode specifies how texture coordinates outside [0, 1] are handled.
type AddressMode uint8

// Address modes.
const (
	AddressModeClampToEdge AddressMode = iota
	AddressModeRepeat
	AddressModeMirrorRepeat
)

// FilterMode specifies texel filtering.
type FilterMode uint8

// Filter modes.
const (
	FilterModeNearest FilterMode = iota
	FilterModeLinear
)

// PolygonMode specifies how triangles are rasterised.
type PolygonMode uint8

// Polygon modes.
const (
	// PolygonModeFill fills triangles. Always supported.
	PolygonModeFill PolygonMode = iota

	// PolygonModeLine draws triangle edges. Requires FeaturePolygonModeLine.
	PolygonModeLine

	// PolygonModePoint draws triangle vertices. Requires FeaturePolygonModePoint.
	PolygonModePoint
)

// String returns the polygon mode name.
func (m PolygonMode) String() string {
	switch m {
	case PolygonModeFill:
		return "fill"
	case PolygonModeLine:
		return "line"
	case PolygonModePoint:
		return "point"
	default:
		return "undefined"
	}
}

// RequiredFeature returns the device feature needed to use m.
func (m PolygonMode) RequiredFeature() Features {
	switch m {
	case PolygonModeLine:
		return FeaturePolygonModeLine
	case PolygonModePoint:
		return FeaturePolygonModePoint
	default:
		return 0
	}
}

// IndexFormat specifies the element type of an index buffer.
type IndexFormat uint8

// Index formats.
const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Size returns the byte size of one index.
func (f IndexFormat) Size() uint64 {
	if f == IndexFormatUint32 {
		return 4
	}
	return 2
}

// ColorWriteMask selects which color channels a render target writes.
type ColorWriteMask uint8

// Color write masks.
const (
	ColorWriteRed ColorWriteMask = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha

	ColorWriteNone ColorWriteMask = 0
	ColorWriteAll                 = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)
