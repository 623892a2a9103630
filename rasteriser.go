package gpukit

import (
	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// RasteriserState is the render state that is convenient to vary per draw.
type RasteriserState struct {
	FrontFace    gputypes.FrontFace
	CullMode     gputypes.CullMode
	DepthWrite   bool
	DepthCompare gputypes.CompareFunction

	// PolygonMode other than fill needs the matching device feature.
	PolygonMode gpucore.PolygonMode
}

// DefaultRasteriserState returns counter-clockwise front faces, no
// culling, depth writes with a less-or-equal test and filled polygons.
func DefaultRasteriserState() RasteriserState {
	return RasteriserState{
		FrontFace:    gputypes.FrontFaceCCW,
		CullMode:     gputypes.CullModeNone,
		DepthWrite:   true,
		DepthCompare: gputypes.CompareFunctionLessEqual,
		PolygonMode:  gpucore.PolygonModeFill,
	}
}

func (r RasteriserState) encode(w *keyWriter) {
	w.tag(tagRasteriser)
	w.u32(uint32(r.FrontFace))
	w.u32(uint32(r.CullMode))
	w.bool(r.DepthWrite)
	w.u32(uint32(r.DepthCompare))
	w.u8(uint8(r.PolygonMode))
}
