package gpucore

import "github.com/gogpu/gputypes"

// =============================================================================
// Resource Descriptors
// =============================================================================

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is a bitmask of allowed buffer usages.
	Usage gputypes.BufferUsage
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width, Height and DepthOrArrayLayers give the texture extent.
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32

	// MipLevelCount is the number of mip levels. 0 is treated as 1.
	MipLevelCount uint32

	// SampleCount is the number of samples per texel. 0 is treated as 1.
	SampleCount uint32

	// Dimension is the texture dimension (1D, 2D, 3D).
	Dimension gputypes.TextureDimension

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage is a bitmask of allowed texture usages.
	Usage gputypes.TextureUsage
}

// TextureWrite describes the destination of a texture upload.
type TextureWrite struct {
	// MipLevel is the destination mip level.
	MipLevel uint32

	// X, Y, Z give the destination origin in texels.
	X, Y, Z uint32

	// Width, Height, DepthOrArrayLayers give the copy extent.
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32

	// BytesPerRow is the stride of one row in the source data.
	BytesPerRow uint32

	// RowsPerImage is the number of rows per array layer. 0 means Height.
	RowsPerImage uint32
}

// TextureViewDescriptor describes a view into a texture.
type TextureViewDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Format is the view format. TextureFormatUndefined inherits the texture's.
	Format gputypes.TextureFormat

	// Dimension is the view dimension. Undefined inherits from the texture.
	Dimension gputypes.TextureViewDimension

	// BaseMipLevel is the first mip level visible through the view.
	BaseMipLevel uint32

	// MipLevelCount is the number of mip levels; 0 means all remaining levels.
	MipLevelCount uint32

	// BaseArrayLayer is the first array layer visible through the view.
	BaseArrayLayer uint32

	// ArrayLayerCount is the number of layers; 0 means all remaining layers.
	ArrayLayerCount uint32
}

// SamplerDescriptor describes a sampler to create.
type SamplerDescriptor struct {
	// Label is an optional debug name.
	Label string

	AddressModeU AddressMode
	AddressModeV AddressMode
	AddressModeW AddressMode

	MagFilter    FilterMode
	MinFilter    FilterMode
	MipmapFilter FilterMode
}

// ShaderModuleDescriptor describes a shader module to create.
// Exactly one of WGSL and SPIRV should be set.
type ShaderModuleDescriptor struct {
	// Label is an optional debug name.
	Label string

	// WGSL is WGSL source code.
	WGSL string

	// SPIRV is SPIR-V bytecode as uint32 words.
	SPIRV []uint32
}

// =============================================================================
// Binding Descriptors
// =============================================================================

// BindGroupLayoutEntry describes a single binding in a bind group layout.
//
// Only the fields relevant to Kind are meaningful; the others must be zero
// so that structurally identical entries compare equal.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Visibility is the set of shader stages that can access the binding.
	Visibility ShaderStages

	// Kind is the resource type bound at this index.
	Kind BindingKind

	// Buffer bindings.
	BufferType       BufferBindingType
	HasDynamicOffset bool
	MinBindingSize   uint64

	// Sampled texture bindings.
	SampleType   TextureSampleType
	Multisampled bool

	// Sampled and storage texture bindings.
	ViewDimension gputypes.TextureViewDimension

	// Storage texture bindings.
	StorageAccess StorageTextureAccess
	StorageFormat gputypes.TextureFormat

	// Sampler bindings.
	SamplerType SamplerBindingType
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout.
	Entries []BindGroupLayoutEntry
}

// BindGroupEntry describes a single binding in a bind group.
// Exactly one of Buffer, TextureView and Sampler is set.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind (for buffer bindings).
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64

	// TextureView is the view to bind (for texture bindings).
	TextureView TextureViewID

	// Sampler is the sampler to bind (for sampler bindings).
	Sampler SamplerID
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Layout is the bind group layout.
	Layout BindGroupLayoutID

	// Entries are the resource bindings.
	Entries []BindGroupEntry
}

// PipelineLayoutDescriptor describes a pipeline layout.
type PipelineLayoutDescriptor struct {
	// Label is an optional debug label.
	Label string

	// BindGroupLayouts are the layouts for bind group slots 0..N.
	BindGroupLayouts []BindGroupLayoutID
}

// =============================================================================
// Pipeline Descriptors
// =============================================================================

// VertexAttribute describes a vertex attribute.
type VertexAttribute struct {
	// Format is the attribute data format.
	Format gputypes.VertexFormat

	// Offset is the byte offset from the start of the vertex.
	Offset uint64

	// ShaderLocation is the attribute location in the shader.
	ShaderLocation uint32
}

// VertexBufferLayout describes a vertex buffer layout.
type VertexBufferLayout struct {
	// ArrayStride is the byte stride between consecutive vertices.
	ArrayStride uint64

	// StepMode is the input rate (per vertex or per instance).
	StepMode gputypes.VertexStepMode

	// Attributes describes the vertex attributes in this buffer.
	Attributes []VertexAttribute
}

// BlendComponent describes a blend component (color or alpha).
type BlendComponent struct {
	// SrcFactor is the source blend factor.
	SrcFactor gputypes.BlendFactor

	// DstFactor is the destination blend factor.
	DstFactor gputypes.BlendFactor

	// Operation is the blend operation.
	Operation gputypes.BlendOperation
}

// BlendState describes the color blending configuration.
type BlendState struct {
	// Color is the color blending configuration.
	Color BlendComponent

	// Alpha is the alpha blending configuration.
	Alpha BlendComponent
}

// BlendStateAlpha returns standard non-premultiplied alpha blending.
func BlendStateAlpha() BlendState {
	return BlendState{
		Color: BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// BlendStatePremultiplied returns premultiplied alpha blending.
func BlendStatePremultiplied() BlendState {
	c := BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	}
	return BlendState{Color: c, Alpha: c}
}

// ColorTargetState describes a fragment output target.
type ColorTargetState struct {
	// Format is the attachment format.
	Format gputypes.TextureFormat

	// Blend is the blend state. Nil disables blending.
	Blend *BlendState

	// WriteMask selects the written channels.
	WriteMask ColorWriteMask
}

// VertexState describes the vertex stage of a render pipeline.
type VertexState struct {
	Module     ShaderModuleID
	EntryPoint string
	Buffers    []VertexBufferLayout
}

// FragmentState describes the fragment stage of a render pipeline.
type FragmentState struct {
	Module     ShaderModuleID
	EntryPoint string
	Targets    []ColorTargetState
}

// PrimitiveState describes primitive assembly and rasterisation.
type PrimitiveState struct {
	Topology    gputypes.PrimitiveTopology
	FrontFace   gputypes.FrontFace
	CullMode    gputypes.CullMode
	PolygonMode PolygonMode
}

// DepthStencilState describes depth testing for a render pipeline.
type DepthStencilState struct {
	Format            gputypes.TextureFormat
	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction
}

// MultisampleState describes multisampling for a render pipeline.
type MultisampleState struct {
	// Count is the number of samples. 0 is treated as 1.
	Count uint32

	// Mask is the sample mask. 0 is treated as all samples.
	Mask uint32

	// AlphaToCoverageEnabled enables alpha-to-coverage.
	AlphaToCoverageEnabled bool
}

// RenderPipelineDescriptor describes a render pipeline to create.
type RenderPipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// Vertex is the vertex stage.
	Vertex VertexState

	// Fragment is the fragment stage. Nil for depth-only pipelines.
	Fragment *FragmentState

	// Primitive is the primitive state.
	Primitive PrimitiveState

	// DepthStencil is the depth state. Nil when the pass has no depth attachment.
	DepthStencil *DepthStencilState

	// Multisample is the multisample state.
	Multisample MultisampleState
}

// ComputePipelineDescriptor describes a compute pipeline to create.
type ComputePipelineDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// Module contains the compute shader.
	Module ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string
}

// =============================================================================
// Pass Descriptors
// =============================================================================

// RenderPassColorAttachment describes a color attachment of a render pass.
type RenderPassColorAttachment struct {
	View          TextureViewID
	ResolveTarget TextureViewID
	LoadOp        gputypes.LoadOp
	StoreOp       gputypes.StoreOp
	ClearValue    gputypes.Color
}

// RenderPassDepthStencilAttachment describes the depth/stencil attachment of
// a render pass.
type RenderPassDepthStencilAttachment struct {
	View TextureViewID

	DepthLoadOp     gputypes.LoadOp
	DepthStoreOp    gputypes.StoreOp
	DepthClearValue float32
	DepthReadOnly   bool

	StencilLoadOp     gputypes.LoadOp
	StencilStoreOp    gputypes.StoreOp
	StencilClearValue uint32
	StencilReadOnly   bool
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	Label                  string
	ColorAttachments       []RenderPassColorAttachment
	DepthStencilAttachment *RenderPassDepthStencilAttachment
}
