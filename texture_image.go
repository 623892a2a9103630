package gpukit

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// ImageOptions configures NewTextureFromImage.
type ImageOptions struct {
	// Label is an optional debug name.
	Label string

	// Mipmaps generates a full mip chain on the CPU.
	Mipmaps bool

	// SRGB selects TextureFormatRGBA8UnormSrgb instead of RGBA8Unorm.
	SRGB bool

	// Usage is added to TextureBinding and CopyDst.
	Usage gputypes.TextureUsage

	// Scaler downsamples mip levels. Nil selects draw.BiLinear.
	Scaler draw.Scaler
}

// NewTextureFromImage uploads img as a 2D RGBA8 texture.
//
// Pixels are converted to premultiplied RGBA. With Mipmaps set, every
// level down to 1x1 is produced by scaling the previous level.
func NewTextureFromImage(ctx *Context, img image.Image, opts ImageOptions) (*Texture, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("texture from image %q: empty image", opts.Label)
	}
	w, h := uint32(b.Dx()), uint32(b.Dy())

	levels := uint32(1)
	if opts.Mipmaps {
		levels = mipLevels(w, h)
	}
	format := gputypes.TextureFormatRGBA8Unorm
	if opts.SRGB {
		format = gputypes.TextureFormatRGBA8UnormSrgb
	}
	scaler := opts.Scaler
	if scaler == nil {
		scaler = draw.BiLinear
	}

	tex, err := NewTexture(ctx, TextureDescriptor{
		Label:         opts.Label,
		Width:         w,
		Height:        h,
		MipLevelCount: levels,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         opts.Usage | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}

	level := toRGBA(img)
	for mip := uint32(0); mip < levels; mip++ {
		if mip > 0 {
			next := image.NewRGBA(image.Rect(0, 0, int(mipExtent(w, mip)), int(mipExtent(h, mip))))
			scaler.Scale(next, next.Bounds(), level, level.Bounds(), draw.Src, nil)
			level = next
		}
		if err := tex.Write(mip, level.Pix, uint32(level.Stride)); err != nil {
			tex.Release()
			return nil, err
		}
	}
	return tex, nil
}

// mipLevels returns the length of a full mip chain for a w x h image.
func mipLevels(w, h uint32) uint32 {
	return uint32(bits.Len32(max(w, h)))
}

// toRGBA returns img as a tightly packed *image.RGBA with origin (0, 0).
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
