// Package bitgrid provides a dense 2D bitset used to record which chunks of
// an image changed. One bit per chunk, packed into uint64 words.
package bitgrid

import (
	"fmt"
	"math/bits"
)

// Grid is a fixed-size 2D bitset.
//
// Bit index = y * width + x
// Word index = bit index / 64
// Bit position = bit index % 64
//
// Grid is not safe for concurrent use; callers serialize access.
type Grid struct {
	words []uint64

	// width and height are the grid dimensions in cells.
	width  int
	height int

	// any is true while at least one bit is set. Maintained by Set and
	// OrInto so emptiness checks stay O(1).
	any bool
}

// New creates a grid with the given dimensions. All bits start clear.
// Non-positive dimensions yield an empty grid on which Set is a no-op.
func New(width, height int) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	total := width * height
	numWords := (total + 63) / 64 // Ceiling division
	return &Grid{
		words:  make([]uint64, numWords),
		width:  width,
		height: height,
	}
}

// Width returns the grid width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() int { return g.height }

// Set sets the bit at (x, y). Out-of-bounds coordinates are ignored.
func (g *Grid) Set(x, y int) {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return
	}
	idx := y*g.width + x
	g.words[idx/64] |= 1 << (idx & 63)
	g.any = true
}

// Get reports whether the bit at (x, y) is set.
// Returns false for out-of-bounds coordinates.
func (g *Grid) Get(x, y int) bool {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return false
	}
	idx := y*g.width + x
	return g.words[idx/64]&(1<<(idx&63)) != 0
}

// Any reports whether at least one bit is set. O(1).
func (g *Grid) Any() bool { return g.any }

// Count returns the number of set bits.
func (g *Grid) Count() int {
	count := 0
	for _, w := range g.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// OrInto merges this grid into dst with a word-wise OR.
// Both grids must share dimensions; merging grids built for different
// resolutions is a caller bug and panics.
func (g *Grid) OrInto(dst *Grid) {
	if g.width != dst.width || g.height != dst.height {
		panic(fmt.Sprintf("bitgrid: merge dimension mismatch: %dx%d into %dx%d",
			g.width, g.height, dst.width, dst.height))
	}
	for i, w := range g.words {
		dst.words[i] |= w
	}
	if g.any {
		dst.any = true
	}
}

// ForEach calls fn for each set bit in row-major order
// (left-to-right, top-to-bottom).
func (g *Grid) ForEach(fn func(x, y int)) {
	if fn == nil || !g.any {
		return
	}
	for wordIdx, word := range g.words {
		for word != 0 {
			bitIdx := bits.TrailingZeros64(word)
			idx := wordIdx*64 + bitIdx
			fn(idx%g.width, idx/g.width)
			word &^= 1 << bitIdx
		}
	}
}
