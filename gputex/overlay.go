//go:build !nogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputex

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/damage"
)

//go:embed shaders/overlay.wgsl
var overlayShaderSource string

// overlayVertexStride is the byte stride per vertex in the overlay
// pipeline: position (vec2<f32>) = 8 bytes (location 0).
const overlayVertexStride = 8

// overlayUniformSize is the byte size of the overlay uniform buffer.
// Layout: viewport (vec2<f32>) + padding (vec2<f32>) + tint (vec4<f32>).
const overlayUniformSize = 32

// overlayWaitTimeout bounds the fence wait after submitting a draw.
const overlayWaitTimeout = 5 * time.Second

// OverlayOption configures an Overlay.
type OverlayOption func(*overlayOptions)

type overlayOptions struct {
	format gputypes.TextureFormat
	tint   [4]float32
}

func defaultOverlayOptions() overlayOptions {
	return overlayOptions{
		format: gputypes.TextureFormatRGBA8Unorm,
		// Translucent orange, the usual "something changed here" marker.
		tint: [4]float32{0.4, 0.2, 0.0, 0.4},
	}
}

// WithTargetFormat sets the format of the views Draw will render into.
// Must match the actual view format or pipeline creation fails.
func WithTargetFormat(format gputypes.TextureFormat) OverlayOption {
	return func(o *overlayOptions) {
		o.format = format
	}
}

// WithTint sets the premultiplied RGBA highlight color.
func WithTint(r, g, b, a float32) OverlayOption {
	return func(o *overlayOptions) {
		o.tint = [4]float32{r, g, b, a}
	}
}

// Overlay tints damaged regions on a target view, the classic editor
// debug visualization for partial updates. Each region becomes a
// translucent quad blended over whatever the view already holds.
//
// Overlay is not safe for concurrent use.
type Overlay struct {
	device hal.Device
	queue  hal.Queue
	opts   overlayOptions

	// GPU objects for the render pipeline, created on first Draw.
	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
}

// NewOverlay creates an overlay renderer. The pipeline is not compiled
// until the first Draw.
func NewOverlay(device hal.Device, queue hal.Queue, opts ...OverlayOption) (*Overlay, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}

	o := defaultOverlayOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Overlay{
		device: device,
		queue:  queue,
		opts:   o,
	}, nil
}

// Draw blends highlight quads for the given regions onto view. The view
// must belong to a texture of the given pixel dimensions and of the
// configured target format; region coordinates are in texture pixels.
// Pass the regions of a single tile per call.
//
// The existing view contents are kept (the pass loads, not clears) and
// the call blocks until the GPU finishes.
func (o *Overlay) Draw(view hal.TextureView, width, height uint32, regions []damage.Region) error {
	if view == nil {
		return ErrTextureNotInitialized
	}
	if len(regions) == 0 || width == 0 || height == 0 {
		return nil
	}
	if err := o.ensurePipeline(); err != nil {
		return err
	}

	vertexData := buildOverlayVertices(regions)
	vertexCount := uint32(len(regions) * 6) //nolint:gosec // region count fits uint32

	vertBuf, err := o.createAndUploadBuffer("damage_overlay_verts", vertexData,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create vertex buffer: %w", err)
	}
	defer o.device.DestroyBuffer(vertBuf)

	uniformData := makeOverlayUniform(width, height, o.opts.tint)
	uniformBuf, err := o.createAndUploadBuffer("damage_overlay_uniform", uniformData,
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	defer o.device.DestroyBuffer(uniformBuf)

	bindGroup, err := o.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "damage_overlay_bind",
		Layout: o.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: uniformBuf.NativeHandle(), Offset: 0, Size: overlayUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer o.device.DestroyBindGroup(bindGroup)

	return o.encodeAndSubmit(view, vertBuf, vertexCount, bindGroup)
}

// encodeAndSubmit records the overlay render pass, submits it, and
// waits on the fence.
func (o *Overlay) encodeAndSubmit(view hal.TextureView, vertBuf hal.Buffer, vertexCount uint32, bindGroup hal.BindGroup) error {
	encoder, err := o.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "damage_overlay_encoder",
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("damage_overlay"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "damage_overlay_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    view,
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(o.pipeline)
	rp.SetBindGroup(0, bindGroup, nil)
	rp.SetVertexBuffer(0, vertBuf, 0)
	rp.Draw(vertexCount, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer o.device.FreeCommandBuffer(cmdBuf)

	fence, err := o.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer o.device.DestroyFence(fence)

	if err := o.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fenceOK, err := o.device.Wait(fence, 1, overlayWaitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", fenceOK, err)
	}
	return nil
}

// ensurePipeline compiles the shader and creates the layouts and render
// pipeline if they don't already exist.
func (o *Overlay) ensurePipeline() error {
	if o.pipeline != nil {
		return nil
	}
	if overlayShaderSource == "" {
		return fmt.Errorf("gputex: overlay shader source is empty")
	}

	// Compile WGSL to SPIR-V.
	spirvBytes, err := naga.Compile(overlayShaderSource)
	if err != nil {
		return fmt.Errorf("gputex: compile overlay shader: %w", err)
	}
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	shader, err := o.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: "damage_overlay_shader",
		Source: hal.ShaderSource{
			SPIRV: spirvCode,
		},
	})
	if err != nil {
		return fmt.Errorf("gputex: create overlay shader module: %w", err)
	}
	o.shader = shader

	uniformLayout, err := o.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "damage_overlay_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gputex: create overlay uniform layout: %w", err)
	}
	o.uniformLayout = uniformLayout

	pipeLayout, err := o.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "damage_overlay_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{o.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("gputex: create overlay pipeline layout: %w", err)
	}
	o.pipeLayout = pipeLayout

	premulBlend := gputypes.BlendStatePremultiplied()
	pipeline, err := o.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "damage_overlay_pipeline",
		Layout: o.pipeLayout,
		Vertex: hal.VertexState{
			Module:     o.shader,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				{
					ArrayStride: overlayVertexStride,
					StepMode:    gputypes.VertexStepModeVertex,
					Attributes: []gputypes.VertexAttribute{
						{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &hal.FragmentState{
			Module:     o.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    o.opts.format,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("gputex: create overlay pipeline: %w", err)
	}
	o.pipeline = pipeline

	return nil
}

// Close releases all pipeline resources in reverse creation order. Safe
// to call multiple times.
func (o *Overlay) Close() {
	if o.device == nil {
		return
	}
	if o.pipeline != nil {
		o.device.DestroyRenderPipeline(o.pipeline)
		o.pipeline = nil
	}
	if o.pipeLayout != nil {
		o.device.DestroyPipelineLayout(o.pipeLayout)
		o.pipeLayout = nil
	}
	if o.uniformLayout != nil {
		o.device.DestroyBindGroupLayout(o.uniformLayout)
		o.uniformLayout = nil
	}
	if o.shader != nil {
		o.device.DestroyShaderModule(o.shader)
		o.shader = nil
	}
}

// buildOverlayVertices generates two triangles per region, positions in
// pixel coordinates. 6 vertices per region, vec2<f32> each.
func buildOverlayVertices(regions []damage.Region) []byte {
	buf := make([]byte, len(regions)*6*overlayVertexStride)
	offset := 0

	put := func(x, y float32) {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(x))
		binary.LittleEndian.PutUint32(buf[offset+4:], math.Float32bits(y))
		offset += overlayVertexStride
	}

	for i := range regions {
		r := regions[i].Rect
		x0, y0 := float32(r.Min.X), float32(r.Min.Y)
		x1, y1 := float32(r.Max.X), float32(r.Max.Y)

		put(x0, y0)
		put(x1, y0)
		put(x1, y1)

		put(x0, y0)
		put(x1, y1)
		put(x0, y1)
	}
	return buf
}

// makeOverlayUniform creates the 32-byte uniform buffer.
// Layout: viewport (vec2<f32>) + padding (vec2<f32>) + tint (vec4<f32>).
func makeOverlayUniform(w, h uint32, tint [4]float32) []byte {
	buf := make([]byte, overlayUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(w)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(h)))
	// Padding bytes 8..15 remain zero.
	for i, v := range tint {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	return buf
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (o *Overlay) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := o.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	o.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}
