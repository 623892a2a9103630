// Package gpucore defines the device capability set consumed by gpukit.
//
// gpukit never talks to a graphics API directly. Everything it needs from the
// GPU is expressed by the [Device] interface and the command recording
// interfaces returned by it ([CommandEncoder], [RenderPassEncoder],
// [ComputePassEncoder]).
//
// # Architecture
//
//	               +-----------------+
//	               |     gpukit      |
//	               | (caches, passes)|
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | gpucore.Device  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	| backend/native  |          | internal/gputest|
//	|  (hal.Device)   |          |   (recording)   |
//	+--------+--------+          +-----------------+
//	         |
//	+--------v--------+
//	|   gogpu/wgpu    |
//	|   (Pure Go)     |
//	+-----------------+
//
// # Resource Management
//
// GPU resources are referred to by opaque IDs ([BufferID], [TextureID], etc.).
// Every Create method has a matching Destroy method. Implementations keep the
// mapping between IDs and backend objects; [InvalidID] is never handed out.
//
// Descriptors passed to a Device are fully resolved: every referenced layout,
// view, sampler and module is already a live ID. Deriving those IDs from
// higher level descriptions is the job of gpukit.
//
// # Field Types
//
// Plain WebGPU enums (formats, usages, compare functions, blend factors)
// come from github.com/gogpu/gputypes. Binding-shape enums that gpukit derives
// itself ([BufferBindingType], [TextureSampleType], [SamplerBindingType]) are
// declared here so that layout entries stay comparable values.
package gpucore
