package gpukit

import "github.com/gogpu/gpukit/gpucore"

// Range is a half-open range [Start, End).
type Range struct {
	Start, End uint32
}

// Len returns the number of elements in the range.
func (r Range) Len() uint32 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// DrawCall is everything needed to issue one draw. It is pure data;
// bind groups and the pipeline are resolved when the encoder is submitted.
type DrawCall struct {
	// BindGroups are bound to indices 0..N in order.
	BindGroups []BindGroup

	// BindGroupOffsets[i] are the dynamic offsets of BindGroups[i].
	BindGroupOffsets [][]uint32

	// Pipeline is the render pipeline description.
	Pipeline RenderPipeline

	// Vertices are bound to vertex buffer slots 0..N in order.
	Vertices []BufferSlice

	// Indices, if set, makes the draw indexed.
	Indices *BufferSlice

	// IndexFormat is the element type of Indices. The default is Uint16.
	IndexFormat gpucore.IndexFormat

	// Elements is the range of vertices, or of indices for indexed draws.
	Elements Range

	// Instances is the range of instances. The zero value draws one
	// instance.
	Instances Range

	// Rasteriser is the per-draw rasteriser state. Nil selects
	// DefaultRasteriserState.
	Rasteriser *RasteriserState
}

func (d *DrawCall) rasteriser() RasteriserState {
	if d.Rasteriser == nil {
		return DefaultRasteriserState()
	}
	return *d.Rasteriser
}

func (d *DrawCall) instances() Range {
	if d.Instances == (Range{}) {
		return Range{0, 1}
	}
	return d.Instances
}

// Dispatch is everything needed to issue one compute dispatch.
type Dispatch struct {
	// BindGroups are bound to indices 0..N in order.
	BindGroups []BindGroup

	// BindGroupOffsets[i] are the dynamic offsets of BindGroups[i].
	BindGroupOffsets [][]uint32

	// Pipeline is the compute pipeline description.
	Pipeline ComputePipeline

	// Extent is the number of workgroups in x, y and z.
	Extent [3]uint32
}

// offsetsAt returns offsets[i], or nil when none were given.
func offsetsAt(offsets [][]uint32, i int) []uint32 {
	if i < len(offsets) {
		return offsets[i]
	}
	return nil
}
