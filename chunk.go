package damage

import "image"

// Chunk size constants. Chunks are the tracking granularity: marking any
// pixel of a chunk damages the whole chunk.
const (
	// ChunkSize is the width and height of a chunk in pixels.
	// 256 balances bookkeeping overhead against upload granularity:
	// a full RGBA chunk is one 256 KB texture upload.
	ChunkSize = 256

	// ChunkBytes is the size of a full chunk in bytes (RGBA, 4 bytes
	// per pixel). Consumers size staging buffers from it.
	ChunkBytes = ChunkSize * ChunkSize * 4
)

// chunkForPixel returns the chunk index containing pixel coordinate p.
// Division rounds toward negative infinity, so pixels -256..-1 map to
// chunk -1 and -512..-257 map to chunk -2.
func chunkForPixel(p int) int {
	if p < 0 {
		return -((-p + ChunkSize - 1) / ChunkSize)
	}
	return p / ChunkSize
}

// chunkSpan returns how many chunks cover size pixels. Remainder pixels
// get a final partial chunk. Zero for non-positive sizes.
func chunkSpan(size int) int {
	if size <= 0 {
		return 0
	}
	return (size + ChunkSize - 1) / ChunkSize
}

// chunkRange converts a half-open pixel rectangle to the half-open chunk
// rectangle it touches, clamped to a gridW x gridH chunk grid. The second
// return is false when nothing of the rectangle lands on the grid.
func chunkRange(r image.Rectangle, gridW, gridH int) (image.Rectangle, bool) {
	if r.Empty() || gridW <= 0 || gridH <= 0 {
		return image.Rectangle{}, false
	}

	x0 := chunkForPixel(r.Min.X)
	y0 := chunkForPixel(r.Min.Y)
	x1 := chunkForPixel(r.Max.X-1) + 1
	y1 := chunkForPixel(r.Max.Y-1) + 1

	// Entirely off-grid.
	if x1 <= 0 || y1 <= 0 || x0 >= gridW || y0 >= gridH {
		return image.Rectangle{}, false
	}

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > gridW {
		x1 = gridW
	}
	if y1 > gridH {
		y1 = gridH
	}
	return image.Rect(x0, y0, x1, y1), true
}

// chunkBounds returns the pixel rectangle covered by chunk (cx, cy),
// clamped to the image so edge chunks yield partial rectangles.
func chunkBounds(cx, cy, imgWidth, imgHeight int) image.Rectangle {
	x0 := cx * ChunkSize
	y0 := cy * ChunkSize
	x1 := x0 + ChunkSize
	y1 := y0 + ChunkSize
	if x1 > imgWidth {
		x1 = imgWidth
	}
	if y1 > imgHeight {
		y1 = imgHeight
	}
	return image.Rect(x0, y0, x1, y1)
}
