// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gputex keeps GPU textures in sync with a damage-tracked image.
//
// Two consumers are provided:
//
//   - TextureMirror: one texture per tile, updated with sub-rectangle
//     uploads covering only the damaged chunk regions. This is the path
//     that keeps paint strokes cheap: a small brush dab re-uploads a few
//     chunks, not the whole canvas.
//   - Overlay: a debug renderer that tints the damaged regions on a
//     target view, for eyeballing what a frame actually re-uploaded.
//
// Both take their device and queue from wgpu/hal handles, or from a
// gpucontext.DeviceProvider via FromProvider when a windowing framework
// owns the device.
//
// All hal-facing code is excluded from builds with the nogpu tag; the
// staging helpers remain available.
package gputex
