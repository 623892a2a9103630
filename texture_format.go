package gpukit

import (
	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// sampleType returns the shader sample type of a texture format.
// Formats not listed are sampled as unfilterable floats.
func sampleType(f gputypes.TextureFormat) gpucore.TextureSampleType {
	switch f {
	case gputypes.TextureFormatR8Unorm,
		gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatRG8Unorm,
		gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8Snorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat:
		return gpucore.TextureSampleTypeFloat

	case gputypes.TextureFormatR8Uint,
		gputypes.TextureFormatRG8Uint,
		gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatR16Uint,
		gputypes.TextureFormatRG16Uint,
		gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatR32Uint,
		gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRGBA32Uint:
		return gpucore.TextureSampleTypeUint

	case gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA32Sint:
		return gpucore.TextureSampleTypeSint

	default:
		return gpucore.TextureSampleTypeUnfilterableFloat
	}
}

// texelSize returns the size of one texel in bytes, or 0 for formats
// without a fixed per-texel size (depth, stencil and compressed formats).
func texelSize(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint:
		return 1
	case gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float:
		return 2
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb, gputypes.TextureFormatRG16Uint,
		gputypes.TextureFormatRG16Sint, gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint,
		gputypes.TextureFormatR32Sint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint, gputypes.TextureFormatRGBA16Uint,
		gputypes.TextureFormatRGBA16Sint, gputypes.TextureFormatRGBA16Float:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 16
	default:
		return 0
	}
}

// viewDimension returns the view dimension matching a texture's shape.
func viewDimension(dim gputypes.TextureDimension, layers uint32) gputypes.TextureViewDimension {
	switch dim {
	case gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	default:
		if layers > 1 {
			return gputypes.TextureViewDimension2DArray
		}
		return gputypes.TextureViewDimension2D
	}
}
