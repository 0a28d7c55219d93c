package surface

// ElementID is the stable identifier of a diagram element.
// IDs are assigned by the host's element store and never reused while the
// element is alive.
type ElementID string

// Element is the core's read-only view of a diagram element.
//
// The element data model is owned by the host; this core only needs the
// identity, placement and a content-version stamp. Any change to the
// element's visual content must change Version, otherwise stale cached
// pixels will be served for it.
type Element struct {
	// ID is the stable element identifier.
	ID ElementID

	// Bounds is the element's axis-aligned bounding box in content
	// coordinates.
	Bounds Box

	// Version is the content-version stamp. It increments on any change
	// that affects the element's rendered pixels.
	Version uint64
}

// PixelCost returns the approximate rasterization cost of the element,
// measured as the covered area in content units (width * height).
// The cache uses it for tier selection and the pre-render scheduler for
// work estimation.
func (e Element) PixelCost() float64 {
	return e.Bounds.Area()
}

// ElementStore supplies the current element list.
// It is a host collaborator; the core never mutates elements.
type ElementStore interface {
	// ListElements returns the current elements. The returned slice is
	// owned by the caller of ListElements and must not be retained by
	// the store.
	ListElements() []Element
}

// Rasterizer is the supplied drawing primitive.
//
// Rasterize must be referentially transparent: for an identical element
// (same ID and Version) and identical render context it must produce
// pixel-identical output. The cache correctness invariant depends on it.
//
// Thread safety: Rasterize is only ever called from the render loop
// (foreground paint or idle pre-render), never concurrently.
type Rasterizer interface {
	Rasterize(el Element, rc RenderContext) (*Pixmap, error)
}

// RasterizeFunc adapts a plain function to the Rasterizer interface.
type RasterizeFunc func(el Element, rc RenderContext) (*Pixmap, error)

// Rasterize implements Rasterizer.
func (f RasterizeFunc) Rasterize(el Element, rc RenderContext) (*Pixmap, error) {
	return f(el, rc)
}
