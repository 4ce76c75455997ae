// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputex

import (
	"image"
	"sync"

	"github.com/gogpu/damage"
)

// uploadBuffer is a reusable staging buffer for texture uploads. Data is
// tightly packed (bytesPerRow = width*4); callers overwrite the full
// region span before uploading, so buffers are not zeroed between uses.
type uploadBuffer struct {
	width  int
	height int
	data   []byte
}

// uploadPool recycles staging buffers used to pack region pixel rows
// before queue.WriteTexture calls.
//
// Most uploads cover a full chunk, so a dedicated pool serves that size
// and a size-keyed map of pools serves the partial chunks at image edges.
//
// Thread safety: uploadPool is safe for concurrent use.
type uploadPool struct {
	// pools holds separate sync.Pool instances per buffer size.
	// Key format: (width << 16) | height
	pools sync.Map

	// chunkPool is the dedicated pool for full-chunk buffers.
	chunkPool sync.Pool
}

func newUploadPool() *uploadPool {
	p := &uploadPool{}
	p.chunkPool.New = func() any {
		return &uploadBuffer{
			width:  damage.ChunkSize,
			height: damage.ChunkSize,
			data:   make([]byte, damage.ChunkBytes),
		}
	}
	return p
}

// get retrieves a staging buffer with room for width*height RGBA pixels.
// Returns nil for non-positive dimensions.
func (p *uploadPool) get(width, height int) *uploadBuffer {
	if width <= 0 || height <= 0 {
		return nil
	}

	if width == damage.ChunkSize && height == damage.ChunkSize {
		return p.chunkPool.Get().(*uploadBuffer)
	}

	key := uploadKey(width, height)
	pool := p.getOrCreatePool(key, width, height)
	return pool.Get().(*uploadBuffer)
}

// put returns a buffer to the pool for reuse. Nil is a no-op.
func (p *uploadPool) put(buf *uploadBuffer) {
	if buf == nil {
		return
	}

	if buf.width == damage.ChunkSize && buf.height == damage.ChunkSize {
		p.chunkPool.Put(buf)
		return
	}

	key := uploadKey(buf.width, buf.height)
	if pool, ok := p.pools.Load(key); ok {
		pool.(*sync.Pool).Put(buf)
	}
	// If the pool doesn't exist, let GC reclaim the buffer.
}

// uploadKey creates a unique key for a buffer size.
// Width and height are clamped to 16-bit values to prevent overflow.
func uploadKey(width, height int) uint32 {
	w := width
	h := height
	if w > 0xFFFF {
		w = 0xFFFF
	}
	if h > 0xFFFF {
		h = 0xFFFF
	}
	return uint32(w)<<16 | uint32(h) //nolint:gosec // values are clamped above
}

// getOrCreatePool gets or creates a sync.Pool for the given dimensions.
func (p *uploadPool) getOrCreatePool(key uint32, width, height int) *sync.Pool {
	if pool, ok := p.pools.Load(key); ok {
		return pool.(*sync.Pool)
	}

	newPool := &sync.Pool{
		New: func() any {
			return &uploadBuffer{
				width:  width,
				height: height,
				data:   make([]byte, width*height*4),
			}
		},
	}

	// Try to store; if another goroutine beat us, use theirs.
	actual, _ := p.pools.LoadOrStore(key, newPool)
	return actual.(*sync.Pool)
}

// packRows copies the pixels of r from src into dst, tightly packed with
// a row stride of r.Dx()*4 bytes. Returns the number of bytes written.
// The rectangle is intersected with the source bounds first; rows outside
// the source contribute nothing.
func packRows(dst []byte, src *image.RGBA, r image.Rectangle) int {
	r = r.Intersect(src.Bounds())
	if r.Empty() {
		return 0
	}

	rowBytes := r.Dx() * 4
	written := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := src.PixOffset(r.Min.X, y)
		copy(dst[written:written+rowBytes], src.Pix[off:off+rowBytes])
		written += rowBytes
	}
	return written
}
