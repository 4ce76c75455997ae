package damage

import "image"

// PixelSource supplies the current pixels of an image's tiles to
// consumers that mirror them. The tracker itself never reads pixels;
// mirroring consumers combine a Watcher (what changed) with a
// PixelSource (the data) to refresh only the damaged parts.
//
// TilePixels returns nil for tiles that have no buffer; consumers skip
// those. The returned image uses the tile's own coordinate space,
// starting at (0, 0).
type PixelSource interface {
	TilePixels(tile TileNumber) *image.RGBA
}

// PixelSourceFunc adapts a function to the PixelSource interface.
type PixelSourceFunc func(tile TileNumber) *image.RGBA

// TilePixels calls f(tile).
func (f PixelSourceFunc) TilePixels(tile TileNumber) *image.RGBA {
	return f(tile)
}
