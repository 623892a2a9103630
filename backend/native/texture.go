//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// CreateTexture creates a GPU texture.
func (d *HALDevice) CreateTexture(desc *gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: texture %q: dimensions must be positive", desc.Label)
	}
	if limit := d.textureLimit(desc.Dimension); limit > 0 && (desc.Width > limit || desc.Height > limit) {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q is %dx%d, limit %d",
			ErrLimit, desc.Label, desc.Width, desc.Height, limit)
	}

	raw, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: atLeastOne(desc.DepthOrArrayLayers),
		},
		MipLevelCount: atLeastOne(desc.MipLevelCount),
		SampleCount:   atLeastOne(desc.SampleCount),
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	return register(d, d.textures, &texture{raw: raw, desc: *desc}), nil
}

func (d *HALDevice) textureLimit(dim gputypes.TextureDimension) uint32 {
	switch dim {
	case gputypes.TextureDimension1D:
		return d.opts.limits.MaxTextureDimension1D
	case gputypes.TextureDimension3D:
		return d.opts.limits.MaxTextureDimension3D
	default:
		return d.opts.limits.MaxTextureDimension2D
	}
}

// DestroyTexture releases a GPU texture.
func (d *HALDevice) DestroyTexture(id gpucore.TextureID) {
	if t, ok := take(d, d.textures, id); ok {
		d.device.DestroyTexture(t.raw)
	}
}

// WriteTexture uploads texel data through the queue.
func (d *HALDevice) WriteTexture(id gpucore.TextureID, dst *gpucore.TextureWrite, data []byte) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	d.mu.RLock()
	t, err := lookup(d.textures, id, "texture")
	d.mu.RUnlock()
	if err != nil {
		return err
	}
	if dst.MipLevel >= atLeastOne(t.desc.MipLevelCount) {
		return fmt.Errorf("native: write to mip %d of texture %q with %d levels",
			dst.MipLevel, t.desc.Label, atLeastOne(t.desc.MipLevelCount))
	}
	rows := dst.RowsPerImage
	if rows == 0 {
		rows = dst.Height
	}
	need := uint64(dst.BytesPerRow) * uint64(rows) * uint64(atLeastOne(dst.DepthOrArrayLayers))
	if uint64(len(data)) < need {
		return fmt.Errorf("native: texture %q write needs %d bytes, got %d", t.desc.Label, need, len(data))
	}

	d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.raw,
			MipLevel: dst.MipLevel,
			Origin:   hal.Origin3D{X: dst.X, Y: dst.Y, Z: dst.Z},
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  dst.BytesPerRow,
			RowsPerImage: rows,
		},
		&hal.Extent3D{Width: dst.Width, Height: dst.Height, DepthOrArrayLayers: atLeastOne(dst.DepthOrArrayLayers)},
	)
	return nil
}

// CreateTextureView creates a view into a texture.
func (d *HALDevice) CreateTextureView(id gpucore.TextureID, desc *gpucore.TextureViewDescriptor) (gpucore.TextureViewID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	d.mu.RLock()
	t, err := lookup(d.textures, id, "texture")
	d.mu.RUnlock()
	if err != nil {
		return gpucore.InvalidID, err
	}

	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = t.desc.Format
	}
	raw, err := d.device.CreateTextureView(t.raw, &hal.TextureViewDescriptor{
		Label:           desc.Label,
		Format:          format,
		Dimension:       desc.Dimension,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    desc.BaseMipLevel,
		MipLevelCount:   desc.MipLevelCount,
		BaseArrayLayer:  desc.BaseArrayLayer,
		ArrayLayerCount: desc.ArrayLayerCount,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create view of texture %q: %w", t.desc.Label, err)
	}
	return register(d, d.views, raw), nil
}

// DestroyTextureView releases a texture view.
func (d *HALDevice) DestroyTextureView(id gpucore.TextureViewID) {
	if v, ok := take(d, d.views, id); ok {
		d.device.DestroyTextureView(v)
	}
}

// CreateSampler creates a sampler.
func (d *HALDevice) CreateSampler(desc *gpucore.SamplerDescriptor) (gpucore.SamplerID, error) {
	if err := d.checkOpen(); err != nil {
		return gpucore.InvalidID, err
	}
	raw, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: convertAddressMode(desc.AddressModeU),
		AddressModeV: convertAddressMode(desc.AddressModeV),
		AddressModeW: convertAddressMode(desc.AddressModeW),
		MagFilter:    convertFilterMode(desc.MagFilter),
		MinFilter:    convertFilterMode(desc.MinFilter),
		MipmapFilter: convertFilterMode(desc.MipmapFilter),
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create sampler %q: %w", desc.Label, err)
	}
	return register(d, d.samplers, raw), nil
}

// DestroySampler releases a sampler.
func (d *HALDevice) DestroySampler(id gpucore.SamplerID) {
	if s, ok := take(d, d.samplers, id); ok {
		d.device.DestroySampler(s)
	}
}

func atLeastOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}
