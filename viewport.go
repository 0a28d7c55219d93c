package surface

import "math"

// Comparison tolerances for viewport change detection.
//
// Exact equality would let floating-point drift from pan/zoom animation
// trigger spurious full-viewport repaints, so viewports compare with a
// small absolute tolerance instead.
const (
	boxEpsilon  = 1e-6
	zoomEpsilon = 1e-9
)

// Viewport describes the visible window onto the diagram surface:
// a box in content coordinates plus a zoom factor mapping content units
// to device pixels.
//
// Viewports are replaced wholesale on every pan or zoom; the engine keeps
// only the previous viewport for change detection.
type Viewport struct {
	Box
	Zoom float64
}

// NewViewport creates a viewport with the given content box and zoom.
// A non-positive zoom is treated as 1.
func NewViewport(b Box, zoom float64) Viewport {
	if zoom <= 0 {
		zoom = 1
	}
	return Viewport{Box: b, Zoom: zoom}
}

// ZoomBucket quantizes the zoom factor into a power-of-two bucket.
// Cached pixels rasterized at one bucket are reused for every zoom within
// that bucket, which keeps cache keys stable across tiny zoom drift.
func (v Viewport) ZoomBucket() int32 {
	if v.Zoom <= 0 {
		return 0
	}
	return int32(math.Round(math.Log2(v.Zoom)))
}

// ApproxEqual reports whether two viewports are equal within the change
// detection tolerance. See the package constants for the epsilon values.
func (v Viewport) ApproxEqual(o Viewport) bool {
	return math.Abs(v.X-o.X) <= boxEpsilon &&
		math.Abs(v.Y-o.Y) <= boxEpsilon &&
		math.Abs(v.W-o.W) <= boxEpsilon &&
		math.Abs(v.H-o.H) <= boxEpsilon &&
		math.Abs(v.Zoom-o.Zoom) <= zoomEpsilon
}

// Velocity returns the displacement of the viewport origin since prev.
// Used by the pre-render scheduler to predict which off-screen elements
// are about to scroll into view.
func (v Viewport) Velocity(prev Viewport) Vec2 {
	return Vec2{X: v.X - prev.X, Y: v.Y - prev.Y}
}
