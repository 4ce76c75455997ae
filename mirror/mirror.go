// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package mirror keeps CPU-side copies of a damage-tracked image in sync.
//
// Two consumers are provided:
//
//   - Mirror: a full-resolution copy of every tile, refreshed region by
//     region. Compositors and caches read from it without touching the
//     producer's buffers.
//   - Preview: a downscaled copy of the primary tile, rescaling only the
//     damaged regions. Thumbnail and navigator views stay cheap while
//     the producer paints.
//
// Both consumers own a watcher and read pixels through a
// damage.PixelSource, so the producer side never blocks on them beyond
// the tracker's own locking.
package mirror

import (
	"errors"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/damage"
)

// ErrNoSource is returned when a consumer is created without a pixel source.
var ErrNoSource = errors.New("mirror: nil pixel source")

// Mirror maintains a full-resolution copy of every tile of a tracked
// image. Sync refreshes only what changed since the previous Sync.
//
// Mirror is not safe for concurrent use; one consumer owns it.
type Mirror struct {
	tracker *damage.Tracker
	watcher *damage.Watcher
	source  damage.PixelSource

	tiles map[damage.TileNumber]*image.RGBA

	// width and height are the dimensions the tile copies were allocated
	// at. When the tracker reports different dimensions the copies are
	// stale and rebuilt wholesale.
	width  int
	height int
}

// New creates a mirror of the given tracker's image, reading pixels
// through src. Nothing is copied until the first Sync.
func New(t *damage.Tracker, src damage.PixelSource) (*Mirror, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	return &Mirror{
		tracker: t,
		watcher: t.NewWatcher(),
		source:  src,
		tiles:   make(map[damage.TileNumber]*image.RGBA),
	}, nil
}

// Sync brings the mirror up to date and reports what kind of refresh ran.
// NeedFullUpdate recopies every tile, ChangesAvailable recopies only the
// damaged regions, NoChanges touches nothing.
func (m *Mirror) Sync() (damage.CollectResult, error) {
	res, err := m.watcher.Collect()
	if err != nil {
		return res, err
	}

	switch res {
	case damage.NeedFullUpdate:
		m.refreshAll()
	case damage.ChangesAvailable:
		if m.width != m.tracker.Width() || m.height != m.tracker.Height() {
			// The copies were allocated for another resolution; the
			// reported regions cannot be applied to them.
			m.refreshAll()
			for _, ok := m.watcher.Next(); ok; _, ok = m.watcher.Next() {
			}
			break
		}
		for region, ok := m.watcher.Next(); ok; region, ok = m.watcher.Next() {
			m.applyRegion(region)
		}
	}
	return res, nil
}

// refreshAll rebuilds every tile copy at the tracker's current
// resolution and tile set.
func (m *Mirror) refreshAll() {
	m.width = m.tracker.Width()
	m.height = m.tracker.Height()
	bounds := image.Rect(0, 0, m.width, m.height)

	fresh := make(map[damage.TileNumber]*image.RGBA)
	for _, tile := range m.tracker.Tiles() {
		src := m.source.TilePixels(tile)
		if src == nil {
			continue
		}
		dst := image.NewRGBA(bounds)
		draw.Draw(dst, bounds, src, src.Bounds().Min, draw.Src)
		fresh[tile] = dst
	}
	m.tiles = fresh

	damage.Logger().Debug("mirror: full refresh",
		"width", m.width, "height", m.height, "tiles", len(m.tiles))
}

// applyRegion recopies one damaged region from the source.
func (m *Mirror) applyRegion(r damage.Region) {
	src := m.source.TilePixels(r.Tile)
	if src == nil {
		return
	}
	dst := m.tiles[r.Tile]
	if dst == nil {
		// The tile appeared through an implicit mark registration.
		dst = image.NewRGBA(image.Rect(0, 0, m.width, m.height))
		m.tiles[r.Tile] = dst
	}
	draw.Draw(dst, r.Rect, src, r.Rect.Min, draw.Src)
}

// Tile returns the mirrored copy of a tile, or nil if the tile has no
// source buffer or Sync has not run yet. The returned image is owned by
// the mirror; treat it as read-only.
func (m *Mirror) Tile(tile damage.TileNumber) *image.RGBA {
	return m.tiles[tile]
}

// Close releases the mirror's watcher. The tile copies remain readable.
func (m *Mirror) Close() {
	m.watcher.Close()
}
