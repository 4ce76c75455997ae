//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputex

import (
	"encoding/binary"
	"errors"
	"image"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/naga"

	"github.com/gogpu/damage"
)

// =============================================================================
// Shader Tests
// =============================================================================

// TestOverlayShaderCompilation tests that the WGSL shader compiles to SPIR-V.
func TestOverlayShaderCompilation(t *testing.T) {
	if overlayShaderSource == "" {
		t.Fatal("overlay shader source is empty")
	}

	spirvBytes, err := naga.Compile(overlayShaderSource)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("failed to compile overlay shader: %v", err)
	}

	if len(spirvBytes) < 4 {
		t.Fatal("SPIR-V too short")
	}
	magic := uint32(spirvBytes[0]) |
		uint32(spirvBytes[1])<<8 |
		uint32(spirvBytes[2])<<16 |
		uint32(spirvBytes[3])<<24
	if magic != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x, want 0x07230203", magic)
	}
}

func TestOverlayShaderEntryPoints(t *testing.T) {
	for _, required := range []string{"@vertex", "@fragment", "vs_main", "fs_main", "OverlayParams"} {
		if !strings.Contains(overlayShaderSource, required) {
			t.Errorf("overlay shader missing required element: %q", required)
		}
	}
}

// =============================================================================
// Vertex and Uniform Building
// =============================================================================

func TestBuildOverlayVertices(t *testing.T) {
	regions := []damage.Region{
		{Tile: damage.PrimaryTile, Rect: image.Rect(0, 0, 256, 256)},
		{Tile: damage.PrimaryTile, Rect: image.Rect(256, 0, 300, 256)},
	}

	data := buildOverlayVertices(regions)
	if want := len(regions) * 6 * overlayVertexStride; len(data) != want {
		t.Fatalf("vertex data = %d bytes, want %d", len(data), want)
	}

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
	}

	// First vertex of the first quad is the region min corner.
	if x, y := readF32(0), readF32(4); x != 0 || y != 0 {
		t.Errorf("first vertex = (%g, %g), want (0, 0)", x, y)
	}
	// Third vertex is the max corner.
	if x, y := readF32(2*overlayVertexStride), readF32(2*overlayVertexStride+4); x != 256 || y != 256 {
		t.Errorf("third vertex = (%g, %g), want (256, 256)", x, y)
	}
	// Second quad starts at the second region's min corner.
	base := 6 * overlayVertexStride
	if x := readF32(base); x != 256 {
		t.Errorf("second quad first x = %g, want 256", x)
	}
}

func TestBuildOverlayVerticesEmpty(t *testing.T) {
	if data := buildOverlayVertices(nil); len(data) != 0 {
		t.Errorf("no regions should produce no vertex data, got %d bytes", len(data))
	}
}

func TestMakeOverlayUniform(t *testing.T) {
	tint := [4]float32{0.5, 0.25, 0.125, 1}
	buf := makeOverlayUniform(800, 600, tint)
	if len(buf) != overlayUniformSize {
		t.Fatalf("uniform = %d bytes, want %d", len(buf), overlayUniformSize)
	}

	readF32 := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	if w := readF32(0); w != 800 {
		t.Errorf("viewport width = %g, want 800", w)
	}
	if h := readF32(4); h != 600 {
		t.Errorf("viewport height = %g, want 600", h)
	}
	for i, want := range tint {
		if got := readF32(16 + i*4); got != want {
			t.Errorf("tint[%d] = %g, want %g", i, got, want)
		}
	}
}

// =============================================================================
// Overlay Lifecycle
// =============================================================================

func TestNewOverlayNilDevice(t *testing.T) {
	if _, err := NewOverlay(nil, nil); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewOverlay(nil) err = %v, want ErrNoDevice", err)
	}
}

func TestOverlayDrawNilView(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	o, err := NewOverlay(device, queue)
	if err != nil {
		t.Fatalf("NewOverlay failed: %v", err)
	}
	defer o.Close()

	regions := []damage.Region{{Tile: damage.PrimaryTile, Rect: image.Rect(0, 0, 256, 256)}}
	if err := o.Draw(nil, 512, 512, regions); !errors.Is(err, ErrTextureNotInitialized) {
		t.Errorf("Draw(nil view) err = %v, want ErrTextureNotInitialized", err)
	}
}

func TestOverlayDraw(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	tracker := damage.NewTracker(512, 512)
	defer tracker.Close()
	src := newTestSource(512, 512, damage.PrimaryTile)

	m, err := New(device, queue, tracker, src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer m.Close()
	if _, err := m.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	o, err := NewOverlay(device, queue, WithTint(0.5, 0, 0, 0.5))
	if err != nil {
		t.Fatalf("NewOverlay failed: %v", err)
	}
	defer o.Close()

	view := m.View(damage.PrimaryTile)
	if view == nil {
		t.Fatal("expected a view for the primary tile")
	}

	// No regions is a no-op that must not touch the pipeline.
	if err := o.Draw(view, 512, 512, nil); err != nil {
		t.Fatalf("Draw with no regions failed: %v", err)
	}
	if o.pipeline != nil {
		t.Error("empty draw should not build the pipeline")
	}

	regions := []damage.Region{
		{Tile: damage.PrimaryTile, Rect: image.Rect(0, 0, 256, 256)},
		{Tile: damage.PrimaryTile, Rect: image.Rect(256, 256, 512, 512)},
	}
	if err := o.Draw(view, 512, 512, regions); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not yet implemented") || strings.Contains(errStr, "not supported") {
			t.Skipf("Skipping: naga feature not yet implemented: %v", err)
		}
		t.Fatalf("Draw failed: %v", err)
	}
	if o.pipeline == nil {
		t.Error("Draw should have built the pipeline")
	}

	// Second draw reuses the compiled pipeline.
	if err := o.Draw(view, 512, 512, regions[:1]); err != nil {
		t.Fatalf("second Draw failed: %v", err)
	}

	o.Close()
	o.Close() // idempotent
	if o.pipeline != nil {
		t.Error("Close should release the pipeline")
	}
}
