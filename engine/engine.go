// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package engine wires the incremental-rendering components (dirty
// tracking, culling, the tiered cache, update scheduling, input
// throttling and idle pre-rendering) into a single paint pipeline.
package engine

import (
	"errors"
	"sync"

	"github.com/gogpu/surface"
	"github.com/gogpu/surface/cache"
	"github.com/gogpu/surface/dirty"
	"github.com/gogpu/surface/input"
	"github.com/gogpu/surface/prerender"
	"github.com/gogpu/surface/sched"
)

// Errors returned by Paint.
var (
	// ErrEmptyTarget is returned for a nil or zero-sized paint target.
	ErrEmptyTarget = errors.New("engine: empty paint target")

	// ErrTargetInaccessible is returned when the target does not expose
	// CPU pixel access.
	ErrTargetInaccessible = errors.New("engine: paint target has no CPU pixel access")

	// ErrNilRasterization is recorded per element when the rasterizer
	// returns neither pixels nor an error.
	ErrNilRasterization = errors.New("engine: rasterizer returned nil payload")
)

// Engine owns one instance of every rendering component and applies
// merged update batches to a single authoritative element snapshot and
// viewport. Hosts queue state changes through QueueUpdate or
// SubmitInput, drive the run loop, and call Paint when the engine
// requests a repaint.
//
// Engine is safe for concurrent use; the intended model is still a
// single cooperative render thread, with input possibly arriving from
// another goroutine.
type Engine struct {
	mu     sync.Mutex
	raster surface.Rasterizer
	loop   sched.RunLoop

	elements []surface.Element
	index    map[surface.ElementID]surface.Element
	viewport surface.Viewport
	prevView surface.Viewport

	throttle *input.Throttle
	updates  *sched.Scheduler
	dirty    *dirty.Tracker
	cache    *cache.Tiered
	pre      *prerender.Scheduler

	cullMargin float64
	onRepaint  func()

	paints     uint64
	rasterized uint64
	served     uint64
	failures   uint64
}

// New creates an engine rendering the store's elements via raster.
// A nil store starts empty; elements then arrive through updates.
func New(store surface.ElementStore, raster surface.Rasterizer, opts ...Option) *Engine {
	cfg := config{
		loop:       sched.NewManualLoop(),
		slack:      dirty.DefaultSlack,
		maxRegions: dirty.DefaultMaxRegions,
		cullMargin: DefaultCullMargin,
		lookahead:  prerender.DefaultLookahead,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		raster:     raster,
		loop:       cfg.loop,
		index:      make(map[surface.ElementID]surface.Element),
		throttle:   input.New(cfg.inputOpts...),
		dirty:      dirty.New(dirty.WithSlack(cfg.slack), dirty.WithMaxRegions(cfg.maxRegions)),
		cache:      cache.New(cfg.cacheOpts...),
		cullMargin: cfg.cullMargin,
	}
	e.updates = sched.New(cfg.loop, e.applyBatch)
	e.pre = prerender.New(e.cache, raster,
		prerender.WithLookahead(cfg.lookahead),
		prerender.WithResolver(e.resolveElement),
	)

	if store != nil {
		e.mu.Lock()
		e.replaceElementsLocked(store.ListElements())
		e.mu.Unlock()
	}
	return e
}

// OnRepaint registers the host callback invoked after a flushed batch
// changed visible state. The host typically calls Paint from it.
func (e *Engine) OnRepaint(fn func()) {
	e.mu.Lock()
	e.onRepaint = fn
	e.mu.Unlock()
}

// Loop returns the engine's run loop.
func (e *Engine) Loop() sched.RunLoop {
	return e.loop
}

// SubmitInput passes an event through the throttle and, when accepted,
// queues the update it carries. Returns whether the event was accepted;
// a dropped event's update is lost, not deferred.
func (e *Engine) SubmitInput(ev surface.PointerEvent, u sched.Update) bool {
	if !e.throttle.Allow(ev) {
		return false
	}
	e.updates.Queue(u)
	return true
}

// QueueUpdate queues a state mutation directly, bypassing the throttle.
func (e *Engine) QueueUpdate(u sched.Update) {
	e.updates.Queue(u)
}

// SetViewport applies a viewport change immediately, outside the update
// scheduler. Hosts use it for window resizes that must not be batched.
func (e *Engine) SetViewport(vp surface.Viewport) {
	e.mu.Lock()
	changed := e.applyViewportLocked(vp)
	fn := e.onRepaint
	e.mu.Unlock()
	if changed && fn != nil {
		fn()
	}
}

// Viewport returns the current viewport.
func (e *Engine) Viewport() surface.Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// Elements returns a copy of the current element snapshot.
func (e *Engine) Elements() []surface.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]surface.Element, len(e.elements))
	copy(out, e.elements)
	return out
}

// resolveElement reports the current state of an element. The
// pre-render scheduler uses it to discard payloads whose element
// mutated mid-flight.
func (e *Engine) resolveElement(id surface.ElementID) (surface.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.index[id]
	return el, ok
}

// applyBatch is the update scheduler's flush handler: it applies the
// merged view delta and element replacement to the authoritative state,
// marking dirt and invalidating cache entries for everything that
// changed, then asks the host for one paint pass.
func (e *Engine) applyBatch(b sched.Batch) {
	e.mu.Lock()
	repaint := false

	if b.HasView {
		vp := e.viewport
		if b.View.X != nil {
			vp.X = *b.View.X
		}
		if b.View.Y != nil {
			vp.Y = *b.View.Y
		}
		if b.View.W != nil {
			vp.W = *b.View.W
		}
		if b.View.H != nil {
			vp.H = *b.View.H
		}
		if b.View.Zoom != nil {
			vp.Zoom = *b.View.Zoom
		}
		if e.applyViewportLocked(vp) {
			repaint = true
		}
	}

	if b.HasElements {
		if e.replaceElementsLocked(b.Elements) {
			repaint = true
		}
	}

	fn := e.onRepaint
	e.mu.Unlock()

	if repaint && fn != nil {
		fn()
	}
}

// applyViewportLocked installs a new viewport if it differs beyond the
// comparison epsilon. A real change invalidates whole-surface snapshots
// and dirties both the old and new visible areas.
func (e *Engine) applyViewportLocked(vp surface.Viewport) bool {
	if vp.Zoom <= 0 {
		vp.Zoom = 1
	}
	if vp.ApproxEqual(e.viewport) {
		return false
	}
	e.cache.InvalidateViewport()
	e.dirty.MarkDirty(e.viewport.Box)
	e.dirty.MarkDirty(vp.Box)
	e.prevView = e.viewport
	e.viewport = vp
	surface.Logger().Debug("viewport changed", "viewport", vp.Box, "zoom", vp.Zoom)
	return true
}

// replaceElementsLocked swaps in a new element snapshot and diffs it
// against the old one: added, removed, moved and version-changed
// elements dirty their old and new bounds, and mutated or removed
// elements lose their cache entries.
func (e *Engine) replaceElementsLocked(els []surface.Element) bool {
	changed := false
	next := make(map[surface.ElementID]surface.Element, len(els))
	for _, el := range els {
		next[el.ID] = el
		if !el.Bounds.Valid() {
			surface.Logger().Warn("element with malformed bounds",
				"id", el.ID, "bounds", el.Bounds)
			continue
		}
		old, ok := e.index[el.ID]
		switch {
		case !ok:
			e.dirty.MarkDirty(el.Bounds)
			changed = true
		case old.Version != el.Version || old.Bounds != el.Bounds:
			e.dirty.MarkDirty(old.Bounds)
			e.dirty.MarkDirty(el.Bounds)
			e.cache.InvalidateElement(el.ID)
			changed = true
		}
	}
	for id, old := range e.index {
		if _, ok := next[id]; !ok {
			e.dirty.MarkDirty(old.Bounds)
			e.cache.InvalidateElement(id)
			changed = true
		}
	}

	e.elements = make([]surface.Element, len(els))
	copy(e.elements, els)
	e.index = next
	return changed
}
