package damage

import (
	"image"
	"testing"
)

// =============================================================================
// Pixel to Chunk Conversion
// =============================================================================

func TestChunkForPixel(t *testing.T) {
	tests := []struct {
		name  string
		pixel int
		want  int
	}{
		{"origin", 0, 0},
		{"inside first chunk", 255, 0},
		{"start of second chunk", 256, 1},
		{"inside second chunk", 300, 1},
		{"far positive", 256 * 10, 10},
		{"minus one", -1, -1},
		{"negative inside first", -255, -1},
		{"exact negative boundary", -256, -1},
		{"just past negative boundary", -257, -2},
		{"two chunks negative", -512, -2},
		{"far negative", -513, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chunkForPixel(tt.pixel); got != tt.want {
				t.Errorf("chunkForPixel(%d) = %d, want %d", tt.pixel, got, tt.want)
			}
		})
	}
}

func TestChunkSpan(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero", 0, 0},
		{"negative", -100, 0},
		{"one pixel", 1, 1},
		{"exact chunk", 256, 1},
		{"one over", 257, 2},
		{"exact two", 512, 2},
		{"remainder gets partial chunk", 513, 3},
		{"typical 4k", 3840, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chunkSpan(tt.size); got != tt.want {
				t.Errorf("chunkSpan(%d) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Rect to Chunk Range
// =============================================================================

func TestChunkRange(t *testing.T) {
	// 4x4 chunk grid (1024x1024 pixels).
	const gridW, gridH = 4, 4

	tests := []struct {
		name   string
		rect   image.Rectangle
		want   image.Rectangle
		wantOK bool
	}{
		{
			name: "single pixel",
			rect: image.Rect(10, 10, 11, 11),
			want: image.Rect(0, 0, 1, 1), wantOK: true,
		},
		{
			name: "spans two chunks horizontally",
			rect: image.Rect(0, 0, 300, 10),
			want: image.Rect(0, 0, 2, 1), wantOK: true,
		},
		{
			name: "exact chunk boundary stays in one chunk",
			rect: image.Rect(0, 0, 256, 256),
			want: image.Rect(0, 0, 1, 1), wantOK: true,
		},
		{
			name: "starts on boundary",
			rect: image.Rect(256, 256, 257, 257),
			want: image.Rect(1, 1, 2, 2), wantOK: true,
		},
		{
			name: "whole grid",
			rect: image.Rect(0, 0, 1024, 1024),
			want: image.Rect(0, 0, 4, 4), wantOK: true,
		},
		{
			name: "overhangs are clamped",
			rect: image.Rect(-100, -100, 2000, 2000),
			want: image.Rect(0, 0, 4, 4), wantOK: true,
		},
		{
			name: "negative origin clamps to first chunk",
			rect: image.Rect(-10, -10, 5, 5),
			want: image.Rect(0, 0, 1, 1), wantOK: true,
		},
		{
			name:   "entirely left of grid",
			rect:   image.Rect(-500, 0, -100, 100),
			wantOK: false,
		},
		{
			name:   "entirely above grid",
			rect:   image.Rect(0, -500, 100, -100),
			wantOK: false,
		},
		{
			name:   "entirely right of grid",
			rect:   image.Rect(1024, 0, 1100, 100),
			wantOK: false,
		},
		{
			name:   "entirely below grid",
			rect:   image.Rect(0, 1024, 100, 1100),
			wantOK: false,
		},
		{
			name:   "empty rect",
			rect:   image.Rect(10, 10, 10, 10),
			wantOK: false,
		},
		{
			name:   "inverted rect normalizes",
			rect:   image.Rect(300, 300, 10, 10),
			want:   image.Rect(0, 0, 2, 2),
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := chunkRange(tt.rect, gridW, gridH)
			if ok != tt.wantOK {
				t.Fatalf("chunkRange(%v) ok = %v, want %v", tt.rect, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("chunkRange(%v) = %v, want %v", tt.rect, got, tt.want)
			}
		})
	}
}

func TestChunkRangeEmptyGrid(t *testing.T) {
	if _, ok := chunkRange(image.Rect(0, 0, 100, 100), 0, 0); ok {
		t.Error("chunkRange on an empty grid should report false")
	}
}

// =============================================================================
// Chunk Pixel Bounds
// =============================================================================

func TestChunkBounds(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy int
		imgW   int
		imgH   int
		want   image.Rectangle
	}{
		{
			name: "interior chunk",
			cx:   0, cy: 0, imgW: 1024, imgH: 1024,
			want: image.Rect(0, 0, 256, 256),
		},
		{
			name: "second chunk",
			cx:   1, cy: 1, imgW: 1024, imgH: 1024,
			want: image.Rect(256, 256, 512, 512),
		},
		{
			name: "right edge partial",
			cx:   1, cy: 0, imgW: 300, imgH: 256,
			want: image.Rect(256, 0, 300, 256),
		},
		{
			name: "bottom edge partial",
			cx:   0, cy: 1, imgW: 256, imgH: 300,
			want: image.Rect(0, 256, 256, 300),
		},
		{
			name: "corner partial both ways",
			cx:   1, cy: 1, imgW: 400, imgH: 300,
			want: image.Rect(256, 256, 400, 300),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chunkBounds(tt.cx, tt.cy, tt.imgW, tt.imgH); got != tt.want {
				t.Errorf("chunkBounds(%d, %d, %d, %d) = %v, want %v",
					tt.cx, tt.cy, tt.imgW, tt.imgH, got, tt.want)
			}
		})
	}
}
