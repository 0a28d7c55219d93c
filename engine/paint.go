// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/surface"
)

// PaintResult summarizes one paint pass.
type PaintResult struct {
	// Painted is the number of elements rasterized this pass.
	Painted int

	// FromCache is the number of elements served from the cache.
	FromCache int

	// Snapshot reports that the whole pass was served from a
	// whole-surface snapshot without touching any element.
	Snapshot bool

	// Failed maps element IDs to their rasterization errors. Failed
	// elements are skipped; the rest of the pass completes.
	Failed map[surface.ElementID]error

	// Regions are the dirty regions this pass repainted, in content
	// units.
	Regions []surface.Box
}

// Paint composites the current element snapshot into the target.
//
// The pass culls to the viewport, flushes pending dirt, repaints only
// the damaged area, and records a whole-surface snapshot for the
// unchanged-viewport fast path. A rasterization failure is isolated to
// its element: the pass completes and the failure is reported in the
// result. Idle pre-rendering is paused for the duration of the pass.
func (e *Engine) Paint(target PaintTarget) (PaintResult, error) {
	if target == nil || target.Width() <= 0 || target.Height() <= 0 {
		return PaintResult{}, ErrEmptyTarget
	}
	if target.Pixels() == nil {
		return PaintResult{}, ErrTargetInaccessible
	}

	e.pre.Pause()
	defer e.pre.Resume()

	e.mu.Lock()
	vp := e.viewport
	prev := e.prevView
	elements := make([]surface.Element, len(e.elements))
	copy(elements, e.elements)
	e.mu.Unlock()

	rc := surface.ContextFor(vp, target.Format())
	dst := &image.RGBA{
		Pix:    target.Pixels(),
		Stride: target.Stride(),
		Rect:   image.Rect(0, 0, target.Width(), target.Height()),
	}

	var res PaintResult
	regions := e.dirty.Flush()

	full := false
	if len(regions) == 0 {
		if snap, ok := e.cache.LookupSurface(vp, rc); ok {
			xdraw.Draw(dst, dst.Rect, snap, image.Point{}, xdraw.Src)
			res.Snapshot = true
			e.finishPaint(res)
			return res, nil
		}
		// Nothing dirty but no snapshot either: first paint, or the
		// snapshot was evicted. Repaint everything.
		full = true
	}

	visible := surface.Cull(elements, vp, e.cullMargin)

	var repaint []surface.Element
	var damaged []surface.Box
	if full {
		repaint = visible
		res.Regions = []surface.Box{vp.Box}
		clearRect(dst, dst.Rect)
	} else {
		repaint, damaged = repaintClosure(visible, regions)
		res.Regions = regions
		for _, b := range damaged {
			clearRect(dst, targetRect(b, vp).Intersect(dst.Rect))
		}
	}

	for _, el := range repaint {
		pm, ok := e.cache.Lookup(el, rc)
		if ok {
			res.FromCache++
		} else {
			var err error
			pm, err = e.raster.Rasterize(el, rc)
			if err == nil && pm == nil {
				err = ErrNilRasterization
			}
			if err != nil {
				if res.Failed == nil {
					res.Failed = make(map[surface.ElementID]error)
				}
				res.Failed[el.ID] = err
				surface.Logger().Warn("rasterization failed",
					"id", el.ID, "err", err)
				// Leave the element's area dirty so the next pass
				// retries it.
				e.dirty.MarkDirty(el.Bounds)
				continue
			}
			e.cache.Store(el, rc, pm)
			res.Painted++
		}

		dr := targetRect(el.Bounds, vp)
		if dr.Dx() == pm.Width() && dr.Dy() == pm.Height() {
			xdraw.Draw(dst, dr, pm, image.Point{}, xdraw.Over)
		} else {
			xdraw.ApproxBiLinear.Scale(dst, dr, pm, pm.Bounds(), xdraw.Over, nil)
		}
	}

	// A snapshot with failed elements would serve their holes from the
	// fast path forever; only clean passes are worth remembering.
	if len(res.Failed) == 0 {
		e.cache.StoreSurface(vp, rc, surface.FromImage(dst))
	}

	e.finishPaint(res)
	e.pre.Plan(elements, vp, prev, rc)
	e.pre.RunIdle(e.loop, rc)
	return res, nil
}

// finishPaint folds a pass result into the engine counters.
func (e *Engine) finishPaint(res PaintResult) {
	e.mu.Lock()
	e.paints++
	e.rasterized += uint64(res.Painted)
	e.served += uint64(res.FromCache)
	e.failures += uint64(len(res.Failed))
	e.mu.Unlock()
}

// repaintClosure grows the repaint set until it is closed under
// overlap: an element overlapping a damaged area must be redrawn, and
// its own bounds become damaged for anything stacked on it. Quadratic
// in the visible count, which the culled set keeps small.
func repaintClosure(visible []surface.Element, regions []surface.Box) ([]surface.Element, []surface.Box) {
	damaged := make([]surface.Box, len(regions))
	copy(damaged, regions)
	include := make([]bool, len(visible))

	for changed := true; changed; {
		changed = false
		for i, el := range visible {
			if include[i] {
				continue
			}
			for _, r := range damaged {
				if el.Bounds.Intersects(r) {
					include[i] = true
					damaged = append(damaged, el.Bounds)
					changed = true
					break
				}
			}
		}
	}

	var repaint []surface.Element
	for i, el := range visible {
		if include[i] {
			repaint = append(repaint, el)
		}
	}
	return repaint, damaged
}

// targetRect maps a content-space box into target pixels under the
// viewport transform, rounding outward so damage is never undercleared.
func targetRect(b surface.Box, vp surface.Viewport) image.Rectangle {
	scale := vp.Zoom
	return image.Rect(
		int(math.Floor((b.X-vp.X)*scale)),
		int(math.Floor((b.Y-vp.Y)*scale)),
		int(math.Ceil((b.MaxX()-vp.X)*scale)),
		int(math.Ceil((b.MaxY()-vp.Y)*scale)),
	)
}

// clearRect zeroes a target rectangle ahead of recompositing.
func clearRect(dst *image.RGBA, r image.Rectangle) {
	if r.Empty() {
		return
	}
	xdraw.Draw(dst, r, image.NewUniform(color.RGBA{}), image.Point{}, xdraw.Src)
}
