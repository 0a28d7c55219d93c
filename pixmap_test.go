package surface

import (
	"image"
	"image/color"
	"testing"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

func TestNewPixmap(t *testing.T) {
	p := NewPixmap(4, 3)
	if p == nil {
		t.Fatal("NewPixmap returned nil")
	}
	if p.Width() != 4 || p.Height() != 3 {
		t.Errorf("expected 4x3, got %dx%d", p.Width(), p.Height())
	}
	if p.ByteSize() != 4*3*4 {
		t.Errorf("expected byte size 48, got %d", p.ByteSize())
	}
	if NewPixmap(0, 10) != nil {
		t.Error("expected nil for zero width")
	}
}

func TestPixmapSetGetPixel(t *testing.T) {
	p := NewPixmap(8, 8)
	p.SetPixel(3, 5, red)
	if got := p.GetPixel(3, 5); got != red {
		t.Errorf("expected %v, got %v", red, got)
	}
	// Out of bounds is ignored / transparent.
	p.SetPixel(-1, 0, red)
	p.SetPixel(8, 0, red)
	if got := p.GetPixel(100, 100); got != (color.RGBA{}) {
		t.Errorf("expected transparent, got %v", got)
	}
}

func TestPixmapClone(t *testing.T) {
	p := NewPixmap(4, 4)
	p.Clear(blue)
	q := p.Clone()
	q.SetPixel(0, 0, red)
	if p.GetPixel(0, 0) != blue {
		t.Error("expected clone mutation to not affect original")
	}
}

func TestPixmapSubPixmap(t *testing.T) {
	p := NewPixmap(10, 10)
	p.SetPixel(4, 4, red)
	sub := p.SubPixmap(image.Rect(3, 3, 6, 6))
	if sub == nil {
		t.Fatal("SubPixmap returned nil")
	}
	if sub.Width() != 3 || sub.Height() != 3 {
		t.Fatalf("expected 3x3, got %dx%d", sub.Width(), sub.Height())
	}
	if got := sub.GetPixel(1, 1); got != red {
		t.Errorf("expected cropped pixel at (1,1), got %v", got)
	}

	// Clamped to bounds.
	sub = p.SubPixmap(image.Rect(8, 8, 20, 20))
	if sub.Width() != 2 || sub.Height() != 2 {
		t.Errorf("expected clamped 2x2, got %dx%d", sub.Width(), sub.Height())
	}

	// Fully outside.
	if p.SubPixmap(image.Rect(20, 20, 30, 30)) != nil {
		t.Error("expected nil for out-of-bounds crop")
	}
}

func TestPixmapDrawPixmap(t *testing.T) {
	dst := NewPixmap(10, 10)
	dst.Clear(blue)
	src := NewPixmap(2, 2)
	src.Clear(red)

	dst.DrawPixmap(src, 4, 4)
	if got := dst.GetPixel(4, 4); got != red {
		t.Errorf("expected drawn pixel, got %v", got)
	}
	if got := dst.GetPixel(3, 4); got != blue {
		t.Errorf("expected untouched pixel, got %v", got)
	}

	// Clipped draw must not panic and must land partially.
	dst.DrawPixmap(src, 9, 9)
	if got := dst.GetPixel(9, 9); got != red {
		t.Errorf("expected clipped draw corner, got %v", got)
	}
}

func TestPixmapRoundTripImage(t *testing.T) {
	p := NewPixmap(5, 5)
	p.SetPixel(2, 3, red)
	q := FromImage(p.ToImage())
	if got := q.GetPixel(2, 3); got != red {
		t.Errorf("expected round-tripped pixel, got %v", got)
	}
}
