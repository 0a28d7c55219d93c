// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"image"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// The host owns the device; the engine receives it and never creates one.
// DeviceHandle is an alias for gpucontext.DeviceProvider, giving the
// interface a local name while staying compatible with the gpucontext
// ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// PaintTarget defines where a paint pass composites its output.
//
// A PaintTarget is an abstraction over different destinations:
//   - PixmapTarget: CPU-backed *image.RGBA for software compositing
//   - TextureTarget: host-owned GPU texture
//
// Targets may support CPU access (Pixels) or not; Paint requires CPU
// access and rejects GPU-only targets.
type PaintTarget interface {
	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Pixels returns direct access to pixel data, or nil for GPU-only
	// targets. For RGBA format, each pixel is 4 bytes: R, G, B, A.
	Pixels() []byte

	// Stride returns the number of bytes per row.
	Stride() int
}

// PixmapTarget is a CPU-backed paint target using *image.RGBA.
type PixmapTarget struct {
	img *image.RGBA
}

// NewPixmapTarget creates a new CPU-backed paint target.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{
		img: image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// NewPixmapTargetFromImage wraps an existing *image.RGBA as a paint
// target. The image is used directly without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Pixels returns direct access to the pixel data.
func (t *PixmapTarget) Pixels() []byte {
	return t.img.Pix
}

// Stride returns the number of bytes per row.
func (t *PixmapTarget) Stride() int {
	return t.img.Stride
}

// Image returns the underlying *image.RGBA.
// The returned image shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Resize replaces the backing image with one of the given dimensions.
// The contents are not preserved.
func (t *PixmapTarget) Resize(width, height int) {
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Ensure PixmapTarget implements PaintTarget.
var _ PaintTarget = (*PixmapTarget)(nil)

// TextureTarget describes a host-owned GPU texture as a paint
// destination. It carries the host's DeviceHandle so a GPU compositor
// can upload into it; the engine's CPU paint path cannot write to it
// and reports ErrTargetInaccessible.
type TextureTarget struct {
	handle DeviceHandle
	width  int
	height int
	format gputypes.TextureFormat
}

// NewTextureTarget creates a paint target describing a GPU texture
// owned by the given device.
func NewTextureTarget(handle DeviceHandle, width, height int, format gputypes.TextureFormat) *TextureTarget {
	return &TextureTarget{
		handle: handle,
		width:  width,
		height: height,
		format: format,
	}
}

// Width returns the target width in pixels.
func (t *TextureTarget) Width() int {
	return t.width
}

// Height returns the target height in pixels.
func (t *TextureTarget) Height() int {
	return t.height
}

// Format returns the pixel format.
func (t *TextureTarget) Format() gputypes.TextureFormat {
	return t.format
}

// Pixels returns nil as this is a GPU-only target.
func (t *TextureTarget) Pixels() []byte {
	return nil
}

// Stride returns 0 as this is a GPU-only target.
func (t *TextureTarget) Stride() int {
	return 0
}

// Handle returns the host's device handle.
func (t *TextureTarget) Handle() DeviceHandle {
	return t.handle
}

// Ensure TextureTarget implements PaintTarget.
var _ PaintTarget = (*TextureTarget)(nil)
