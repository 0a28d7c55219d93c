package surface

// Cull returns the subset of elements whose bounding box intersects the
// viewport expanded by margin, under closed-interval semantics: an
// element touching the expanded edge is included.
//
// Cull is a pure function of its inputs. It is a linear scan with an O(1)
// per-element test, which is adequate for tens of thousands of elements;
// hosts needing more can pre-filter with their own spatial index and pass
// the result here.
//
// Elements with malformed bounds are skipped and reported through the
// package logger.
func Cull(elements []Element, vp Viewport, margin float64) []Element {
	return CullInto(nil, elements, vp, margin)
}

// CullInto appends the visible subset of elements to dst and returns it.
// Passing a reused dst[:0] avoids per-pass allocation.
func CullInto(dst []Element, elements []Element, vp Viewport, margin float64) []Element {
	window := vp.Box.Expand(margin)
	for _, el := range elements {
		if !el.Bounds.Valid() {
			Logger().Warn("skipping element with malformed bounds",
				"id", el.ID, "bounds", el.Bounds)
			continue
		}
		if el.Bounds.Intersects(window) {
			dst = append(dst, el)
		}
	}
	return dst
}
