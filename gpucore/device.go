package gpucore

// Device abstracts the GPU device and queue consumed by gpukit.
//
// Implementations must be thread-safe for concurrent use.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - Destroying an unknown or already destroyed ID is a no-op
//   - IDs become invalid after destruction and must not be reused
type Device interface {
	// === Capabilities ===

	// Features returns the optional features enabled on the device.
	Features() Features

	// === Buffers ===

	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *BufferDescriptor) (BufferID, error)

	// DestroyBuffer releases a GPU buffer.
	DestroyBuffer(id BufferID)

	// WriteBuffer uploads data to a buffer through the queue.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer copies size bytes starting at offset back to the CPU.
	// It blocks until the GPU has finished all submitted work.
	ReadBuffer(id BufferID, offset, size uint64) ([]byte, error)

	// === Textures ===

	// CreateTexture creates a GPU texture.
	CreateTexture(desc *TextureDescriptor) (TextureID, error)

	// DestroyTexture releases a GPU texture.
	DestroyTexture(id TextureID)

	// WriteTexture uploads texel data through the queue.
	WriteTexture(id TextureID, dst *TextureWrite, data []byte) error

	// CreateTextureView creates a view into a texture.
	CreateTextureView(texture TextureID, desc *TextureViewDescriptor) (TextureViewID, error)

	// DestroyTextureView releases a texture view.
	DestroyTextureView(id TextureViewID)

	// CreateSampler creates a sampler.
	CreateSampler(desc *SamplerDescriptor) (SamplerID, error)

	// DestroySampler releases a sampler.
	DestroySampler(id SamplerID)

	// === Shaders ===

	// CreateShaderModule creates a shader module.
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModuleID, error)

	// DestroyShaderModule releases a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// === Layouts and Bind Groups ===

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout releases a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroupID, error)

	// DestroyBindGroup releases a bind group.
	DestroyBindGroup(id BindGroupID)

	// CreatePipelineLayout creates a pipeline layout.
	CreatePipelineLayout(desc *PipelineLayoutDescriptor) (PipelineLayoutID, error)

	// DestroyPipelineLayout releases a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// === Pipelines ===

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipelineID, error)

	// DestroyRenderPipeline releases a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipelineID, error)

	// DestroyComputePipeline releases a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// === Command Recording and Execution ===

	// CreateCommandEncoder begins recording a new command buffer.
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Submit submits a finished command buffer to the queue.
	// Submission does not wait for the GPU to finish.
	Submit(cmd CommandBuffer) error
}

// CommandBuffer is a finished, submittable recording.
// It is opaque to gpukit; only the Device that produced it can submit it.
type CommandBuffer interface {
	// Label returns the debug label of the recording.
	Label() string
}

// CommandEncoder records GPU commands into a command buffer.
//
// Only one pass may be open at a time. Finish and Discard both end the
// encoder; further use is undefined.
type CommandEncoder interface {
	// BeginRenderPass begins a render pass.
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPassEncoder, error)

	// BeginComputePass begins a compute pass.
	BeginComputePass(label string) (ComputePassEncoder, error)

	// ClearBuffer fills a range of a buffer with zeros.
	// A size of 0 clears to the end of the buffer.
	ClearBuffer(buffer BufferID, offset, size uint64) error

	// CopyBufferToBuffer copies size bytes between buffers.
	CopyBufferToBuffer(src BufferID, srcOffset uint64, dst BufferID, dstOffset uint64, size uint64) error

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBuffer, error)

	// Discard abandons the recording.
	Discard()
}

// RenderPassEncoder records draw commands.
type RenderPassEncoder interface {
	// SetBindGroup binds a bind group for subsequent draws.
	SetBindGroup(index uint32, group BindGroupID, dynamicOffsets []uint32)

	// SetPipeline sets the active render pipeline.
	SetPipeline(pipeline RenderPipelineID)

	// SetVertexBuffer binds a vertex buffer range to a slot.
	SetVertexBuffer(slot uint32, buffer BufferID, offset, size uint64)

	// SetIndexBuffer binds an index buffer range.
	SetIndexBuffer(buffer BufferID, format IndexFormat, offset, size uint64)

	// Draw draws non-indexed primitives.
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)

	// DrawIndexed draws indexed primitives.
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)

	// End finishes the render pass.
	End() error
}

// ComputePassEncoder records compute dispatches.
type ComputePassEncoder interface {
	// SetBindGroup binds a bind group for subsequent dispatches.
	SetBindGroup(index uint32, group BindGroupID, dynamicOffsets []uint32)

	// SetPipeline sets the active compute pipeline.
	SetPipeline(pipeline ComputePipelineID)

	// Dispatch dispatches compute workgroups.
	Dispatch(x, y, z uint32)

	// End finishes the compute pass.
	End() error
}
