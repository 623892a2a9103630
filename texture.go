package gpukit

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpukit/gpucore"
	"github.com/gogpu/gputypes"
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is an optional debug name.
	Label string

	// Width, Height and DepthOrArrayLayers give the extent. A zero
	// DepthOrArrayLayers is treated as 1.
	Width              uint32
	Height             uint32
	DepthOrArrayLayers uint32

	// MipLevelCount is the number of mip levels. 0 is treated as 1.
	MipLevelCount uint32

	// SampleCount is the number of samples per texel. 0 is treated as 1.
	SampleCount uint32

	// Dimension is the texture dimension.
	Dimension gputypes.TextureDimension

	// Format is the texel format.
	Format gputypes.TextureFormat

	// Usage is a bitmask of allowed texture usages.
	Usage gputypes.TextureUsage
}

// Texture is a handle to a GPU texture restricted to a range of mip levels.
//
// View returns handles with the same identity and a different mip range.
// Textures compare by identity plus mip range; the texture view cache is
// keyed the same way.
type Texture struct {
	ctx      *Context
	id       uint64
	core     *textureCore
	baseMip  uint32
	mipCount uint32
}

// textureCore is the device texture shared by all views of a Texture.
type textureCore struct {
	handle   *Shared[gpucore.TextureID]
	desc     gpucore.TextureDescriptor
	label    string
	once     sync.Once
	released atomic.Bool
}

// NewTexture creates a texture with undefined contents.
func NewTexture(ctx *Context, desc TextureDescriptor) (*Texture, error) {
	d := gpucore.TextureDescriptor{
		Label:              ctx.label(desc.Label),
		Width:              desc.Width,
		Height:             desc.Height,
		DepthOrArrayLayers: max(desc.DepthOrArrayLayers, 1),
		MipLevelCount:      max(desc.MipLevelCount, 1),
		SampleCount:        max(desc.SampleCount, 1),
		Dimension:          desc.Dimension,
		Format:             desc.Format,
		Usage:              desc.Usage,
	}
	id, err := ctx.device.CreateTexture(&d)
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, configError(err))
	}
	return &Texture{
		ctx: ctx,
		id:  newIdentity(),
		core: &textureCore{
			handle: newShared(id, ctx.device.DestroyTexture),
			desc:   d,
			label:  desc.Label,
		},
	}, nil
}

// NewTextureWithData creates a texture and uploads data to mip level 0.
// A bytesPerRow of 0 is derived from the width and the format's texel size.
// CopyDst is added to the usage.
func NewTextureWithData(ctx *Context, desc TextureDescriptor, data []byte, bytesPerRow uint32) (*Texture, error) {
	desc.Usage |= gputypes.TextureUsageCopyDst
	t, err := NewTexture(ctx, desc)
	if err != nil {
		return nil, err
	}
	if err := t.Write(0, data, bytesPerRow); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// ID returns the identity of the texture.
func (t *Texture) ID() uint64 { return t.id }

// Label returns the debug name of the texture.
func (t *Texture) Label() string { return t.core.label }

// Width returns the width of mip level 0.
func (t *Texture) Width() uint32 { return t.core.desc.Width }

// Height returns the height of mip level 0.
func (t *Texture) Height() uint32 { return t.core.desc.Height }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.core.desc.Format }

// Dimension returns the texture dimension.
func (t *Texture) Dimension() gputypes.TextureDimension { return t.core.desc.Dimension }

// MipLevelCount returns the number of mip levels of the texture.
func (t *Texture) MipLevelCount() uint32 { return t.core.desc.MipLevelCount }

// SampleCount returns the number of samples per texel.
func (t *Texture) SampleCount() uint32 { return t.core.desc.SampleCount }

// MipRange returns the first mip level and the number of levels visible
// through this handle. A count of 0 means all remaining levels.
func (t *Texture) MipRange() (base, count uint32) { return t.baseMip, t.mipCount }

// Write uploads a full mip level. A bytesPerRow of 0 is derived from the
// level width and the format's texel size.
func (t *Texture) Write(mipLevel uint32, data []byte, bytesPerRow uint32) error {
	if t.core.released.Load() {
		return fmt.Errorf("write texture %q: %w", t.core.label, ErrReleased)
	}
	d := &t.core.desc
	w, h := mipExtent(d.Width, mipLevel), mipExtent(d.Height, mipLevel)
	depth := d.DepthOrArrayLayers
	if d.Dimension == gputypes.TextureDimension3D {
		depth = mipExtent(depth, mipLevel)
	}
	if bytesPerRow == 0 {
		ts := texelSize(d.Format)
		if ts == 0 {
			return fmt.Errorf("write texture %q: bytes per row required for format %v", t.core.label, d.Format)
		}
		bytesPerRow = w * ts
	}
	err := t.ctx.device.WriteTexture(t.core.handle.ID(), &gpucore.TextureWrite{
		MipLevel:           mipLevel,
		Width:              w,
		Height:             h,
		DepthOrArrayLayers: depth,
		BytesPerRow:        bytesPerRow,
		RowsPerImage:       h,
	}, data)
	if err != nil {
		return fmt.Errorf("write texture %q mip %d: %w", t.core.label, mipLevel, err)
	}
	return nil
}

// mipExtent returns the size of a dimension at a mip level.
func mipExtent(size, level uint32) uint32 {
	return max(size>>level, 1)
}

// View returns a handle to mip levels [baseMip, baseMip+mipCount) of the
// same texture. A mipCount of 0 selects all remaining levels.
func (t *Texture) View(baseMip, mipCount uint32) *Texture {
	return &Texture{ctx: t.ctx, id: t.id, core: t.core, baseMip: baseMip, mipCount: mipCount}
}

// Release destroys the device texture once no cached view or encoder
// still references it. Release affects every view of the texture; using
// any of them afterwards fails with ErrReleased.
func (t *Texture) Release() {
	t.core.once.Do(func() {
		t.core.released.Store(true)
		t.core.handle.Release()
	})
}

// TextureBinding binds the texture for sampling.
func (t *Texture) TextureBinding() TextureBinding {
	return TextureBinding{texture: t}
}

// StorageBinding binds the texture as a write-only storage texture.
func (t *Texture) StorageBinding() TextureBinding {
	return TextureBinding{texture: t, storage: true}
}

// viewKey returns the texture view cache key.
func (t *Texture) viewKey() string {
	var w keyWriter
	w.tag(tagTextureView)
	w.u64(t.id)
	w.u32(t.baseMip)
	w.u32(t.mipCount)
	return w.String()
}

// textureView resolves the view through the view cache and returns it
// with an extra reference. Caller must hold c.mu.
func (c *Context) textureView(t *Texture) (*Shared[gpucore.TextureViewID], error) {
	if t.core.released.Load() {
		return nil, fmt.Errorf("resolve texture view %q: %w", t.core.label, ErrReleased)
	}
	view, err := c.textureViews.GetOrInsert(t.viewKey(), func() (*Shared[gpucore.TextureViewID], error) {
		d := &t.core.desc
		if t.baseMip >= d.MipLevelCount {
			return nil, fmt.Errorf("%w: base mip %d of %d", ErrConfiguration, t.baseMip, d.MipLevelCount)
		}
		count := t.mipCount
		if count == 0 {
			count = d.MipLevelCount - t.baseMip
		}
		tex := t.core.handle
		if !tex.tryRetain() {
			return nil, ErrReleased
		}
		id, err := c.device.CreateTextureView(tex.ID(), &gpucore.TextureViewDescriptor{
			Label:         c.label(t.core.label),
			Format:        d.Format,
			Dimension:     viewDimension(d.Dimension, d.DepthOrArrayLayers),
			BaseMipLevel:  t.baseMip,
			MipLevelCount: count,
		})
		if err != nil {
			tex.Release()
			return nil, configError(err)
		}
		c.logger().Debug("gpukit: texture view created", "texture", t.core.label, "base_mip", t.baseMip, "mips", count)
		return newShared(id, func(id gpucore.TextureViewID) {
			c.device.DestroyTextureView(id)
			tex.Release()
		}), nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve texture view %q: %w", t.core.label, err)
	}
	return view.Retain(), nil
}

// AsRenderTexture resolves the texture's view for use as a render pass
// attachment. The caller owns one reference of the returned RenderTexture.
func (t *Texture) AsRenderTexture() (RenderTexture, error) {
	t.ctx.mu.Lock()
	defer t.ctx.mu.Unlock()

	view, err := t.ctx.textureView(t)
	if err != nil {
		return RenderTexture{}, err
	}
	return RenderTexture{view: view, format: t.core.desc.Format}, nil
}

// TextureBinding describes how a texture is bound in a bind group.
type TextureBinding struct {
	texture *Texture
	storage bool
}

// Texture returns the bound texture.
func (b TextureBinding) Texture() *Texture { return b.texture }

// Storage reports whether the texture is bound as a storage texture.
func (b TextureBinding) Storage() bool { return b.storage }

// layoutEntry returns the layout shape of the binding.
func (b TextureBinding) layoutEntry(slot uint32, visibility gpucore.ShaderStages) gpucore.BindGroupLayoutEntry {
	e := gpucore.BindGroupLayoutEntry{Binding: slot, Visibility: visibility, Kind: gpucore.BindingKindTexture}
	if b.storage {
		e.Kind = gpucore.BindingKindStorageTexture
	}
	if b.texture == nil {
		return e
	}
	d := &b.texture.core.desc
	e.ViewDimension = viewDimension(d.Dimension, d.DepthOrArrayLayers)
	if b.storage {
		e.StorageAccess = gpucore.StorageTextureAccessWriteOnly
		e.StorageFormat = d.Format
		return e
	}
	e.SampleType = sampleType(d.Format)
	e.Multisampled = d.SampleCount > 1
	return e
}

// RenderTexture is a texture view usable as a render pass attachment.
type RenderTexture struct {
	view   *Shared[gpucore.TextureViewID]
	format gputypes.TextureFormat
}

// NewRenderTextureFromView wraps an externally owned view, such as the
// current surface texture. gpukit never destroys the view.
func NewRenderTextureFromView(view gpucore.TextureViewID, format gputypes.TextureFormat) RenderTexture {
	return RenderTexture{view: newShared(view, nil), format: format}
}

// View returns the texture view ID.
func (r RenderTexture) View() gpucore.TextureViewID {
	if r.view == nil {
		return gpucore.InvalidID
	}
	return r.view.ID()
}

// Format returns the format of the view.
func (r RenderTexture) Format() gputypes.TextureFormat { return r.format }

// Release drops the caller's reference to the view.
func (r RenderTexture) Release() {
	if r.view != nil {
		r.view.Release()
	}
}
