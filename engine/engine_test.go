// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/surface"
	"github.com/gogpu/surface/sched"
)

// solidRaster fills each element with its assigned color and records
// rasterization order.
type solidRaster struct {
	order  []surface.ElementID
	colors map[surface.ElementID]color.RGBA
	fail   map[surface.ElementID]error
}

func newSolidRaster() *solidRaster {
	return &solidRaster{
		colors: make(map[surface.ElementID]color.RGBA),
		fail:   make(map[surface.ElementID]error),
	}
}

func (r *solidRaster) Rasterize(el surface.Element, rc surface.RenderContext) (*surface.Pixmap, error) {
	if err := r.fail[el.ID]; err != nil {
		return nil, err
	}
	r.order = append(r.order, el.ID)
	pm := surface.NewPixmap(int(el.Bounds.W), int(el.Bounds.H))
	c, ok := r.colors[el.ID]
	if !ok {
		c = color.RGBA{R: 255, A: 255}
	}
	pm.Clear(c)
	return pm, nil
}

func (r *solidRaster) count(id surface.ElementID) int {
	n := 0
	for _, got := range r.order {
		if got == id {
			n++
		}
	}
	return n
}

// listStore is a fixed ElementStore.
type listStore []surface.Element

func (s listStore) ListElements() []surface.Element { return s }

func red() color.RGBA   { return color.RGBA{R: 255, A: 255} }
func green() color.RGBA { return color.RGBA{G: 255, A: 255} }

// newTestEngine builds an engine over two in-view elements and one far
// outside the cull margin, with a 200x200 viewport at zoom 1.
func newTestEngine(t *testing.T) (*Engine, *solidRaster, *sched.ManualLoop) {
	t.Helper()
	raster := newSolidRaster()
	raster.colors["a"] = red()
	raster.colors["b"] = green()
	store := listStore{
		{ID: "a", Bounds: surface.B(10, 10, 20, 20), Version: 1},
		{ID: "b", Bounds: surface.B(100, 100, 20, 20), Version: 1},
		{ID: "far", Bounds: surface.B(1000, 1000, 20, 20), Version: 1},
	}
	loop := sched.NewManualLoop()
	e := New(store, raster, WithRunLoop(loop))
	e.SetViewport(surface.NewViewport(surface.B(0, 0, 200, 200), 1))
	return e, raster, loop
}

func TestFirstPaintRendersVisibleElements(t *testing.T) {
	e, raster, _ := newTestEngine(t)
	target := NewPixmapTarget(200, 200)

	res, err := e.Paint(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Painted != 2 {
		t.Errorf("expected 2 elements painted, got %d", res.Painted)
	}
	if raster.count("far") != 0 {
		t.Error("expected culled element to never rasterize")
	}
	if got := target.Image().RGBAAt(15, 15); got != red() {
		t.Errorf("expected red at (15,15), got %v", got)
	}
	if got := target.Image().RGBAAt(110, 110); got != green() {
		t.Errorf("expected green at (110,110), got %v", got)
	}
}

func TestUnchangedRepaintServedFromSnapshot(t *testing.T) {
	e, raster, _ := newTestEngine(t)
	target := NewPixmapTarget(200, 200)

	e.Paint(target)
	rasterized := len(raster.order)

	res, err := e.Paint(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Snapshot {
		t.Error("expected unchanged repaint served from whole-surface snapshot")
	}
	if len(raster.order) != rasterized {
		t.Error("expected no rasterization on snapshot path")
	}
	if got := target.Image().RGBAAt(15, 15); got != red() {
		t.Errorf("expected snapshot pixels identical, got %v", got)
	}
}

func TestElementUpdateRepaintsOnlyDamage(t *testing.T) {
	e, raster, loop := newTestEngine(t)
	target := NewPixmapTarget(200, 200)
	e.OnRepaint(func() { e.Paint(target) })

	e.Paint(target)

	// Bump one element's version; the other must not re-rasterize.
	els := e.Elements()
	for i := range els {
		if els[i].ID == "a" {
			els[i].Version = 2
		}
	}
	e.QueueUpdate(sched.Update{Elements: els, Priority: sched.Medium})
	loop.Refresh()

	if got := raster.count("a"); got != 2 {
		t.Errorf("expected changed element rasterized twice, got %d", got)
	}
	if got := raster.count("b"); got != 1 {
		t.Errorf("expected unchanged element rasterized once, got %d", got)
	}
	if got := target.Image().RGBAAt(110, 110); got != green() {
		t.Errorf("expected untouched element pixels preserved, got %v", got)
	}
}

func TestViewportChangeInvalidatesSnapshot(t *testing.T) {
	e, _, loop := newTestEngine(t)
	target := NewPixmapTarget(200, 200)
	e.Paint(target)

	e.QueueUpdate(sched.Update{
		View:     &sched.ViewDelta{X: sched.Float(50)},
		Priority: sched.Medium,
	})
	loop.Refresh()

	res, err := e.Paint(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Snapshot {
		t.Error("expected scrolled paint to not reuse the old snapshot")
	}
	// Element pixmaps survive a scroll: same zoom bucket, same versions.
	if res.FromCache == 0 {
		t.Error("expected elements served from per-element cache after scroll")
	}
	// b's content position (100,100) lands at target (50,100) under
	// viewport x=50.
	if got := target.Image().RGBAAt(60, 110); got != green() {
		t.Errorf("expected green at scrolled position, got %v", got)
	}
}

func TestPartialFailureIsolation(t *testing.T) {
	e, raster, _ := newTestEngine(t)
	boom := errors.New("glyph atlas exhausted")
	raster.fail["a"] = boom
	target := NewPixmapTarget(200, 200)

	res, err := e.Paint(target)
	if err != nil {
		t.Fatalf("expected per-element isolation, got pass error %v", err)
	}
	if got := res.Failed["a"]; !errors.Is(got, boom) {
		t.Errorf("expected failure recorded for a, got %v", got)
	}
	if res.Painted != 1 {
		t.Errorf("expected the healthy element painted, got %d", res.Painted)
	}
	if got := target.Image().RGBAAt(110, 110); got != green() {
		t.Errorf("expected healthy element composited, got %v", got)
	}

	// The failed area stays dirty: once the rasterizer recovers, the next
	// pass retries instead of serving a holed snapshot.
	delete(raster.fail, "a")
	res, _ = e.Paint(target)
	if res.Snapshot {
		t.Error("expected failed pass to not produce a snapshot")
	}
	if got := target.Image().RGBAAt(15, 15); got != red() {
		t.Errorf("expected recovered element painted, got %v", got)
	}
}

func TestPaintRejectsTargets(t *testing.T) {
	e, _, _ := newTestEngine(t)

	if _, err := e.Paint(nil); !errors.Is(err, ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget for nil target, got %v", err)
	}
	if _, err := e.Paint(NewPixmapTarget(0, 0)); !errors.Is(err, ErrEmptyTarget) {
		t.Errorf("expected ErrEmptyTarget for zero size, got %v", err)
	}
	gpu := NewTextureTarget(nil, 200, 200, gputypes.TextureFormatRGBA8Unorm)
	if _, err := e.Paint(gpu); !errors.Is(err, ErrTargetInaccessible) {
		t.Errorf("expected ErrTargetInaccessible for GPU-only target, got %v", err)
	}
}

func TestSubmitInputThrottles(t *testing.T) {
	now := time.Unix(1000, 0)
	e := New(nil, newSolidRaster(), WithClock(func() time.Time { return now }))

	u := sched.Update{View: &sched.ViewDelta{X: sched.Float(1)}, Priority: sched.Low}
	ev := surface.PointerEvent{Class: surface.ClassMotion}
	if !e.SubmitInput(ev, u) {
		t.Fatal("expected first motion event accepted")
	}
	if e.SubmitInput(ev, u) {
		t.Fatal("expected second motion event within 16ms dropped")
	}
	if got := e.Stats().Updates.Queued; got != 1 {
		t.Errorf("expected dropped event's update lost, queued=%d", got)
	}
}

func TestRepaintCallbackOnFlush(t *testing.T) {
	e, _, loop := newTestEngine(t)
	repaints := 0
	e.OnRepaint(func() { repaints++ })

	e.QueueUpdate(sched.Update{
		View:     &sched.ViewDelta{Y: sched.Float(25)},
		Priority: sched.High,
	})
	loop.Pump()
	if repaints != 1 {
		t.Errorf("expected one repaint request, got %d", repaints)
	}

	// A no-op view delta (same values) must not request a repaint.
	e.QueueUpdate(sched.Update{
		View:     &sched.ViewDelta{Y: sched.Float(25)},
		Priority: sched.High,
	})
	loop.Pump()
	if repaints != 1 {
		t.Errorf("expected no repaint for unchanged viewport, got %d", repaints)
	}
}

func TestStatsAggregation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	target := NewPixmapTarget(200, 200)
	e.Paint(target)
	e.Paint(target)

	s := e.Stats()
	if s.Paints != 2 {
		t.Errorf("expected 2 paints, got %d", s.Paints)
	}
	if s.Rasterized != 2 {
		t.Errorf("expected 2 rasterizations, got %d", s.Rasterized)
	}
	if s.Cache.L1.Entries == 0 {
		t.Error("expected L1 cache entries after paint")
	}
	if s.Dirty.Marked == 0 {
		t.Error("expected dirty marks recorded")
	}
}
