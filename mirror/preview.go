// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mirror

import (
	"errors"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/gogpu/damage"
)

// ErrInvalidScale is returned for preview scales outside (0, 1].
var ErrInvalidScale = errors.New("mirror: preview scale must be in (0, 1]")

// PreviewOption configures a Preview during creation.
type PreviewOption func(*previewOptions)

type previewOptions struct {
	scaler draw.Scaler
}

// WithScaler selects the interpolator used when rescaling damaged
// regions. The default is draw.ApproxBiLinear, a good speed/quality
// trade-off for previews. Use draw.NearestNeighbor when speed matters
// more than smoothness, or draw.CatmullRom for the best quality.
func WithScaler(s draw.Scaler) PreviewOption {
	return func(o *previewOptions) {
		if s != nil {
			o.scaler = s
		}
	}
}

// Preview maintains a downscaled copy of the primary tile. Sync rescales
// only the damaged regions, so a large image being painted costs little
// per frame.
//
// Regions are rescaled independently, which can leave single-pixel seams
// at region borders with interpolating scalers. Previews tolerate this;
// use a Mirror when exact pixels matter.
//
// Preview is not safe for concurrent use; one consumer owns it.
type Preview struct {
	tracker *damage.Tracker
	watcher *damage.Watcher
	source  damage.PixelSource
	scale   float64
	scaler  draw.Scaler

	dst *image.RGBA

	// srcW and srcH are the source dimensions dst was derived from.
	srcW int
	srcH int
}

// NewPreview creates a preview of the tracker's primary tile at the
// given scale in (0, 1]. Nothing is rendered until the first Sync.
func NewPreview(t *damage.Tracker, src damage.PixelSource, scale float64, opts ...PreviewOption) (*Preview, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if scale <= 0 || scale > 1 || math.IsNaN(scale) {
		return nil, ErrInvalidScale
	}

	o := previewOptions{scaler: draw.ApproxBiLinear}
	for _, opt := range opts {
		opt(&o)
	}

	return &Preview{
		tracker: t,
		watcher: t.NewWatcher(),
		source:  src,
		scale:   scale,
		scaler:  o.scaler,
	}, nil
}

// Sync brings the preview up to date and reports what kind of refresh ran.
func (p *Preview) Sync() (damage.CollectResult, error) {
	res, err := p.watcher.Collect()
	if err != nil {
		return res, err
	}

	switch res {
	case damage.NeedFullUpdate:
		p.rebuild()
	case damage.ChangesAvailable:
		if p.srcW != p.tracker.Width() || p.srcH != p.tracker.Height() {
			p.rebuild()
			for _, ok := p.watcher.Next(); ok; _, ok = p.watcher.Next() {
			}
			break
		}
		src := p.source.TilePixels(damage.PrimaryTile)
		if src == nil {
			break
		}
		for region, ok := p.watcher.Next(); ok; region, ok = p.watcher.Next() {
			if region.Tile != damage.PrimaryTile {
				continue
			}
			p.applyRegion(src, region.Rect)
		}
	}
	return res, nil
}

// rebuild rescales the whole primary tile at the current resolution.
func (p *Preview) rebuild() {
	p.srcW = p.tracker.Width()
	p.srcH = p.tracker.Height()
	dw := int(math.Ceil(p.scale * float64(p.srcW)))
	dh := int(math.Ceil(p.scale * float64(p.srcH)))
	p.dst = image.NewRGBA(image.Rect(0, 0, dw, dh))

	src := p.source.TilePixels(damage.PrimaryTile)
	if src == nil || dw == 0 || dh == 0 {
		return
	}
	p.scaler.Scale(p.dst, p.dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}

// applyRegion rescales the part of the preview covered by one damaged
// source region.
func (p *Preview) applyRegion(src *image.RGBA, sr image.Rectangle) {
	dr := image.Rect(
		int(math.Floor(p.scale*float64(sr.Min.X))),
		int(math.Floor(p.scale*float64(sr.Min.Y))),
		int(math.Ceil(p.scale*float64(sr.Max.X))),
		int(math.Ceil(p.scale*float64(sr.Max.Y))),
	).Intersect(p.dst.Bounds())
	if dr.Empty() {
		return
	}
	p.scaler.Scale(p.dst, dr, src, sr, draw.Src, nil)
}

// Image returns the preview pixels, or nil before the first Sync. The
// returned image is owned by the preview; treat it as read-only.
func (p *Preview) Image() *image.RGBA {
	return p.dst
}

// Scale returns the configured scale factor.
func (p *Preview) Scale() float64 {
	return p.scale
}

// Close releases the preview's watcher. The preview image remains
// readable.
func (p *Preview) Close() {
	p.watcher.Close()
}
