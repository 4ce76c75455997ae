//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputex

import (
	"errors"
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/damage"
)

// Common errors returned by gputex consumers.
var (
	// ErrNoDevice is returned when a consumer is created without a GPU
	// device or queue.
	ErrNoDevice = errors.New("gputex: nil device or queue")

	// ErrNoSource is returned when a texture mirror is created without a
	// pixel source.
	ErrNoSource = errors.New("gputex: nil pixel source")

	// ErrTextureNotInitialized is returned when a draw target view is nil
	// or has not been created yet.
	ErrTextureNotInitialized = errors.New("gputex: texture not initialized")
)

// Option configures a TextureMirror.
type Option func(*options)

type options struct {
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage
	label  string
}

func defaultOptions() options {
	return options{
		format: gputypes.TextureFormatRGBA8Unorm,
		usage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		label:  "damage_mirror",
	}
}

// WithFormat sets the texture format. The source still supplies RGBA
// bytes; pick a format with a matching 4-byte texel layout.
func WithFormat(format gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithUsage sets the texture usage flags. CopyDst is required for
// uploads and is OR-ed in if missing.
func WithUsage(usage gputypes.TextureUsage) Option {
	return func(o *options) {
		o.usage = usage | gputypes.TextureUsageCopyDst
	}
}

// WithLabel sets the GPU debug label prefix for textures and views.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// TextureMirror keeps one GPU texture per tile of a tracked image in
// sync, uploading only the regions that changed between Sync calls.
//
// TextureMirror is not safe for concurrent use; one consumer owns it.
type TextureMirror struct {
	device  hal.Device
	queue   hal.Queue
	tracker *damage.Tracker
	watcher *damage.Watcher
	source  damage.PixelSource
	opts    options

	textures map[damage.TileNumber]hal.Texture
	views    map[damage.TileNumber]hal.TextureView

	// width and height are the dimensions the textures were allocated
	// at. When the tracker reports different dimensions the textures are
	// stale and recreated wholesale.
	width  int
	height int

	staging *uploadPool
}

// New creates a texture mirror of the given tracker's image, reading
// pixels through src. No GPU resources are allocated until the first
// Sync.
func New(device hal.Device, queue hal.Queue, t *damage.Tracker, src damage.PixelSource, opts ...Option) (*TextureMirror, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	if src == nil {
		return nil, ErrNoSource
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &TextureMirror{
		device:   device,
		queue:    queue,
		tracker:  t,
		watcher:  t.NewWatcher(),
		source:   src,
		opts:     o,
		textures: make(map[damage.TileNumber]hal.Texture),
		views:    make(map[damage.TileNumber]hal.TextureView),
		staging:  newUploadPool(),
	}, nil
}

// Sync brings the GPU textures up to date and reports what kind of
// refresh ran. NeedFullUpdate recreates every texture at the tracker's
// current resolution and uploads all pixels; ChangesAvailable uploads
// only the damaged regions; NoChanges touches the GPU not at all.
func (m *TextureMirror) Sync() (damage.CollectResult, error) {
	res, err := m.watcher.Collect()
	if err != nil {
		return res, err
	}

	switch res {
	case damage.NeedFullUpdate:
		if err := m.recreateAll(); err != nil {
			return res, err
		}
	case damage.ChangesAvailable:
		if m.width != m.tracker.Width() || m.height != m.tracker.Height() {
			// The textures were allocated for another resolution; the
			// reported regions cannot be applied to them.
			if err := m.recreateAll(); err != nil {
				return res, err
			}
			for _, ok := m.watcher.Next(); ok; _, ok = m.watcher.Next() {
			}
			break
		}
		for region, ok := m.watcher.Next(); ok; region, ok = m.watcher.Next() {
			if err := m.uploadRegion(region); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// recreateAll destroys every texture and creates fresh ones at the
// tracker's current resolution and tile set, uploading all pixels.
func (m *TextureMirror) recreateAll() error {
	m.destroyAll()
	m.width = m.tracker.Width()
	m.height = m.tracker.Height()

	for _, tile := range m.tracker.Tiles() {
		src := m.source.TilePixels(tile)
		if src == nil {
			continue
		}
		if err := m.ensureTexture(tile); err != nil {
			return err
		}
		m.uploadFull(tile, src)
	}

	damage.Logger().Debug("gputex: full texture refresh",
		"width", m.width, "height", m.height, "textures", len(m.textures))
	return nil
}

// ensureTexture creates the texture and view for a tile at the mirror's
// current dimensions. No-op if the tile already has one.
func (m *TextureMirror) ensureTexture(tile damage.TileNumber) error {
	if m.textures[tile] != nil {
		return nil
	}
	if m.width <= 0 || m.height <= 0 {
		return fmt.Errorf("gputex: cannot create %dx%d texture for tile %d", m.width, m.height, tile)
	}

	w, h := uint32(m.width), uint32(m.height) //nolint:gosec // dimensions always fit uint32
	label := fmt.Sprintf("%s_%d", m.opts.label, tile)

	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        m.opts.format,
		Usage:         m.opts.usage,
	})
	if err != nil {
		return fmt.Errorf("create texture for tile %d: %w", tile, err)
	}

	view, err := m.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		m.device.DestroyTexture(tex)
		return fmt.Errorf("create texture view for tile %d: %w", tile, err)
	}

	m.textures[tile] = tex
	m.views[tile] = view
	return nil
}

// uploadFull uploads the whole tile buffer in one WriteTexture call.
func (m *TextureMirror) uploadFull(tile damage.TileNumber, src *image.RGBA) {
	bounds := image.Rect(0, 0, m.width, m.height).Intersect(src.Bounds())
	if bounds.Empty() {
		return
	}
	m.writeRect(tile, src, bounds)
}

// uploadRegion uploads one damaged region, packing its rows into a
// pooled staging buffer first. Tiles that appeared through an implicit
// mark registration get a texture on first damage.
func (m *TextureMirror) uploadRegion(r damage.Region) error {
	src := m.source.TilePixels(r.Tile)
	if src == nil {
		return nil
	}
	if err := m.ensureTexture(r.Tile); err != nil {
		return err
	}

	rect := r.Rect.Intersect(src.Bounds())
	if rect.Empty() {
		return nil
	}
	m.writeRect(r.Tile, src, rect)
	return nil
}

// writeRect packs the pixels of rect from src and writes them to the
// tile's texture at the rect origin. The rect must lie within the
// source bounds.
func (m *TextureMirror) writeRect(tile damage.TileNumber, src *image.RGBA, rect image.Rectangle) {
	buf := m.staging.get(rect.Dx(), rect.Dy())
	if buf == nil {
		return
	}
	defer m.staging.put(buf)

	n := packRows(buf.data, src, rect)
	if n == 0 {
		return
	}

	w, h := uint32(rect.Dx()), uint32(rect.Dy()) //nolint:gosec // region dims always fit uint32
	m.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  m.textures[tile],
			MipLevel: 0,
			Origin: hal.Origin3D{
				X: uint32(rect.Min.X), //nolint:gosec // region rects are clamped non-negative
				Y: uint32(rect.Min.Y), //nolint:gosec // region rects are clamped non-negative
			},
			Aspect: gputypes.TextureAspectAll,
		},
		buf.data[:n],
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
}

// Texture returns the GPU texture for a tile, or nil if the tile has no
// source buffer or Sync has not run yet.
func (m *TextureMirror) Texture(tile damage.TileNumber) hal.Texture {
	return m.textures[tile]
}

// View returns the texture view for a tile, or nil if the tile has no
// texture.
func (m *TextureMirror) View(tile damage.TileNumber) hal.TextureView {
	return m.views[tile]
}

// Close releases the watcher and destroys all GPU resources. Safe to
// call multiple times.
func (m *TextureMirror) Close() {
	m.watcher.Close()
	m.destroyAll()
	m.width = 0
	m.height = 0
}

// destroyAll releases views then textures.
func (m *TextureMirror) destroyAll() {
	for tile, view := range m.views {
		if view != nil {
			m.device.DestroyTextureView(view)
		}
		delete(m.views, tile)
	}
	for tile, tex := range m.textures {
		if tex != nil {
			m.device.DestroyTexture(tex)
		}
		delete(m.textures, tile)
	}
}
