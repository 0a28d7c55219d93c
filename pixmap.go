package surface

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// bytesPerPixel is the size of one RGBA8 pixel.
const bytesPerPixel = 4

// Pixmap is a rectangular RGBA8 pixel buffer.
// It is the payload type produced by the Rasterizer collaborator and
// owned by the render cache once stored.
type Pixmap struct {
	width  int
	height int
	data   []uint8 // RGBA format, 4 bytes per pixel
}

// NewPixmap creates a new pixmap with the given dimensions.
// Returns nil for non-positive dimensions.
func NewPixmap(width, height int) *Pixmap {
	if width <= 0 || height <= 0 {
		return nil
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*bytesPerPixel),
	}
}

// Width returns the width of the pixmap in pixels.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap in pixels.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data (RGBA format).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// ByteSize returns the memory footprint of the pixel data in bytes.
// The cache accounts entries against its byte budget with this value.
func (p *Pixmap) ByteSize() int64 {
	if p == nil {
		return 0
	}
	return int64(p.width) * int64(p.height) * bytesPerPixel
}

// SetPixel sets the color of a single pixel.
// Out-of-bounds coordinates are ignored.
func (p *Pixmap) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * bytesPerPixel
	p.data[i+0] = c.R
	p.data[i+1] = c.G
	p.data[i+2] = c.B
	p.data[i+3] = c.A
}

// GetPixel returns the color of a single pixel.
// Out-of-bounds coordinates return transparent black.
func (p *Pixmap) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return color.RGBA{}
	}
	i := (y*p.width + x) * bytesPerPixel
	return color.RGBA{R: p.data[i+0], G: p.data[i+1], B: p.data[i+2], A: p.data[i+3]}
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c color.RGBA) {
	for i := 0; i < len(p.data); i += bytesPerPixel {
		p.data[i+0] = c.R
		p.data[i+1] = c.G
		p.data[i+2] = c.B
		p.data[i+3] = c.A
	}
}

// Clone returns a deep copy of the pixmap.
func (p *Pixmap) Clone() *Pixmap {
	if p == nil {
		return nil
	}
	q := &Pixmap{width: p.width, height: p.height, data: make([]uint8, len(p.data))}
	copy(q.data, p.data)
	return q
}

// SubPixmap returns a copy of the pixels within r (pixmap coordinates).
// The rectangle is clamped to the pixmap bounds; returns nil if the
// clamped rectangle is empty.
func (p *Pixmap) SubPixmap(r image.Rectangle) *Pixmap {
	r = r.Intersect(image.Rect(0, 0, p.width, p.height))
	if r.Empty() {
		return nil
	}
	sub := NewPixmap(r.Dx(), r.Dy())
	draw.Copy(sub.rgba(), image.Point{}, p.rgba(), r, draw.Src, nil)
	return sub
}

// DrawPixmap copies src into p with its top-left corner at (x, y),
// replacing destination pixels (Src composite). Source pixels falling
// outside p are clipped.
func (p *Pixmap) DrawPixmap(src *Pixmap, x, y int) {
	if src == nil {
		return
	}
	dst := p.rgba()
	sr := image.Rect(0, 0, src.width, src.height)
	dr := sr.Add(image.Pt(x, y)).Intersect(dst.Bounds())
	if dr.Empty() {
		return
	}
	draw.Draw(dst, dr, src.rgba(), dr.Min.Sub(image.Pt(x, y)), draw.Src)
}

// CompositePixmap draws src over p with its top-left corner at (x, y),
// alpha-blending against existing pixels (Over composite).
func (p *Pixmap) CompositePixmap(src *Pixmap, x, y int) {
	if src == nil {
		return
	}
	dst := p.rgba()
	sr := image.Rect(0, 0, src.width, src.height)
	dr := sr.Add(image.Pt(x, y)).Intersect(dst.Bounds())
	if dr.Empty() {
		return
	}
	draw.Draw(dst, dr, src.rgba(), dr.Min.Sub(image.Pt(x, y)), draw.Over)
}

// rgba wraps the pixel data as an *image.RGBA sharing memory with p.
func (p *Pixmap) rgba() *image.RGBA {
	return &image.RGBA{
		Pix:    p.data,
		Stride: p.width * bytesPerPixel,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// ToImage converts the pixmap to a newly allocated image.RGBA.
func (p *Pixmap) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.data)
	return img
}

// FromImage creates a pixmap from an image.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())
	if pm == nil {
		return nil
	}
	draw.Copy(pm.rgba(), image.Point{}, img, bounds, draw.Src, nil)
	return pm
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	return p.GetPixel(x, y)
}
