package damage

import (
	"cmp"
	"image"
	"slices"

	"github.com/gogpu/damage/internal/bitgrid"
)

// tileChangeset records which chunks of one tile changed.
type tileChangeset struct {
	tile   TileNumber
	chunks *bitgrid.Grid
}

// changeset groups the tile changesets of one image at one point in its
// history. Tile entries appear lazily on first mark and stay sorted by
// tile number, so iteration order is deterministic.
type changeset struct {
	// gridW and gridH are the chunk grid dimensions every tile
	// changeset in this set is built for.
	gridW int
	gridH int

	tiles []*tileChangeset
}

func newChangeset(gridW, gridH int) *changeset {
	return &changeset{gridW: gridW, gridH: gridH}
}

// tileFor returns the changeset of the given tile, creating it on first use.
func (c *changeset) tileFor(tile TileNumber) *tileChangeset {
	i, found := slices.BinarySearchFunc(c.tiles, tile,
		func(tc *tileChangeset, n TileNumber) int { return cmp.Compare(tc.tile, n) })
	if found {
		return c.tiles[i]
	}
	tc := &tileChangeset{tile: tile, chunks: bitgrid.New(c.gridW, c.gridH)}
	c.tiles = slices.Insert(c.tiles, i, tc)
	return tc
}

// markChunks sets every chunk in the half-open chunk rectangle r on the
// given tile. r must already be clamped to the grid.
func (c *changeset) markChunks(tile TileNumber, r image.Rectangle) {
	tc := c.tileFor(tile)
	for cy := r.Min.Y; cy < r.Max.Y; cy++ {
		for cx := r.Min.X; cx < r.Max.X; cx++ {
			tc.chunks.Set(cx, cy)
		}
	}
}

// hasDirty reports whether any tile has at least one dirty chunk.
func (c *changeset) hasDirty() bool {
	for _, tc := range c.tiles {
		if tc.chunks.Any() {
			return true
		}
	}
	return false
}

// dirtyCount returns the total dirty chunk count across all tiles.
func (c *changeset) dirtyCount() int {
	n := 0
	for _, tc := range c.tiles {
		n += tc.chunks.Count()
	}
	return n
}

// mergeInto ORs every tile changeset into dst, creating tile entries dst
// does not have yet. Panics if the chunk grids differ in size.
func (c *changeset) mergeInto(dst *changeset) {
	for _, tc := range c.tiles {
		tc.chunks.OrInto(dst.tileFor(tc.tile).chunks)
	}
}
