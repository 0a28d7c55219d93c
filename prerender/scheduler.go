// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package prerender fills predicted render-cache gaps during idle
// windows, ahead of the viewport reaching them.
package prerender

import (
	"container/heap"
	"sync"

	"github.com/gogpu/surface"
	"github.com/gogpu/surface/cache"
	"github.com/gogpu/surface/sched"
)

// DefaultLookahead is how far beyond the viewport, in content units,
// elements are considered for pre-rendering.
const DefaultLookahead = 256.0

// directionalWeight scales the priority bonus for elements lying in the
// viewport's direction of travel.
const directionalWeight = 0.25

// item is a transient unit of pre-render work. Items are discarded once
// rasterized or superseded by a newer plan.
type item struct {
	el       surface.Element
	priority float64
	cost     float64
	index    int // heap index
}

// workHeap is a max-heap of items by priority.
type workHeap []*item

func (h workHeap) Len() int           { return len(h) }
func (h workHeap) Less(i, j int) bool { return h[i].priority > h[j].priority }

func (h workHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *workHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *workHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Resolver returns the current state of an element by ID, or false if it
// no longer exists. The engine supplies its element snapshot; the
// scheduler uses it to discard pre-rendered payloads whose element
// mutated between planning and completion.
type Resolver func(surface.ElementID) (surface.Element, bool)

// Stats contains pre-render counters.
type Stats struct {
	// Planned is the number of work items ever queued.
	Planned uint64
	// Rendered is the number of payloads rasterized and stored.
	Rendered uint64
	// Superseded is the number of popped items skipped because they
	// were already cached or no longer near the viewport.
	Superseded uint64
	// Stale is the number of rasterized payloads discarded because the
	// element mutated before completion.
	Stale uint64
	// Failed is the number of rasterization failures.
	Failed uint64
}

// Scheduler is the idle-time pre-renderer. It pops the highest-priority
// uncached element, rasterizes it, and stores the result, one item per
// idle slice, yielding to foreground work between items.
//
// Scheduler is safe for concurrent use, though the intended model is a
// single cooperative thread.
type Scheduler struct {
	mu        sync.Mutex
	cache     *cache.Tiered
	raster    surface.Rasterizer
	resolve   Resolver
	queue     workHeap
	vp        surface.Viewport
	lookahead float64
	paused    bool

	planned    uint64
	rendered   uint64
	superseded uint64
	stale      uint64
	failed     uint64
}

// Option configures a Scheduler during creation.
type Option func(*Scheduler)

// WithLookahead sets how far beyond the viewport elements are planned.
func WithLookahead(margin float64) Option {
	return func(s *Scheduler) {
		if margin >= 0 {
			s.lookahead = margin
		}
	}
}

// WithResolver injects the current-element resolver used for the
// staleness re-check before a background store.
func WithResolver(r Resolver) Option {
	return func(s *Scheduler) {
		s.resolve = r
	}
}

// New creates a pre-render scheduler storing into c via r.
func New(c *cache.Tiered, r surface.Rasterizer, opts ...Option) *Scheduler {
	s := &Scheduler{
		cache:     c,
		raster:    r,
		lookahead: DefaultLookahead,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan replaces the work queue from the current element list and
// viewport. Replacing the queue cancels every not-yet-started item with
// no side effects (nothing is stored until an item completes).
//
// Priority grows with proximity to the viewport center, with a bonus for
// elements lying in the direction of viewport travel: elements about to
// scroll into view rank above elements behind.
func (s *Scheduler) Plan(elements []surface.Element, vp, prev surface.Viewport, rc surface.RenderContext) {
	dir := vp.Velocity(prev).Normalize()
	window := vp.Box.Expand(s.lookahead)
	center := vp.Box.Center()

	var queue workHeap
	for _, el := range elements {
		if !el.Bounds.Valid() {
			continue
		}
		if !s.cache.Cacheable(el.PixelCost()) {
			continue
		}
		if !el.Bounds.Intersects(window) {
			continue
		}
		if s.cache.Contains(el, rc) {
			continue
		}
		queue = append(queue, &item{
			el:       el,
			priority: priorityFor(el, center, dir),
			cost:     el.PixelCost(),
		})
	}
	heap.Init(&queue)

	s.mu.Lock()
	s.queue = queue
	s.vp = vp
	s.planned += uint64(len(queue))
	s.mu.Unlock()

	surface.Logger().Debug("pre-render plan", "items", len(queue))
}

// priorityFor ranks an element by inverse distance to the viewport
// center plus a directional bonus.
func priorityFor(el surface.Element, center surface.Point, dir surface.Vec2) float64 {
	offset := el.Bounds.Center().Sub(center)
	p := 1 / (1 + offset.Length())
	if !dir.IsZero() {
		if ahead := offset.Normalize().Dot(dir); ahead > 0 {
			p += directionalWeight * ahead
		}
	}
	return p
}

// Step processes the single highest-priority item: re-checks it is still
// uncached and still near the viewport, rasterizes it, re-checks the
// element's content stamp, and stores the payload. Returns false when
// the queue is empty or the scheduler is paused.
//
// One item per call keeps pre-rendering cooperative: the caller yields
// to foreground work between steps.
func (s *Scheduler) Step(rc surface.RenderContext) bool {
	s.mu.Lock()
	if s.paused || len(s.queue) == 0 {
		s.mu.Unlock()
		return false
	}
	it := heap.Pop(&s.queue).(*item)
	window := s.vp.Box.Expand(s.lookahead)
	s.mu.Unlock()

	// The viewport may have moved or a foreground paint may have filled
	// this entry since planning.
	if s.cache.Contains(it.el, rc) || !it.el.Bounds.Intersects(window) {
		s.mu.Lock()
		s.superseded++
		s.mu.Unlock()
		return true
	}

	payload, err := s.raster.Rasterize(it.el, rc)
	if err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		surface.Logger().Warn("pre-render rasterization failed",
			"id", it.el.ID, "err", err)
		return true
	}

	// The element may have mutated after this item was planned; a stale
	// payload must never reach the cache.
	if s.resolve != nil {
		cur, ok := s.resolve(it.el.ID)
		if !ok || cur.Version != it.el.Version {
			s.mu.Lock()
			s.stale++
			s.mu.Unlock()
			surface.Logger().Debug("discarding stale pre-render", "id", it.el.ID)
			return true
		}
	}

	s.cache.Store(it.el, rc, payload)
	s.mu.Lock()
	s.rendered++
	s.mu.Unlock()
	return true
}

// RunIdle pumps Step through the run loop's idle windows, one item per
// window, until the queue drains. Safe to call repeatedly; each call
// arms at most one idle callback chain.
func (s *Scheduler) RunIdle(loop sched.RunLoop, rc surface.RenderContext) {
	loop.NextIdle(func() {
		if s.Step(rc) {
			s.RunIdle(loop, rc)
		}
	})
}

// Pause stops Step from processing items. The engine pauses the
// scheduler for the duration of a foreground paint so pre-rendering
// never shares an execution slice with it.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables Step.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Len returns the number of queued work items.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stats returns current pre-render counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Planned:    s.planned,
		Rendered:   s.rendered,
		Superseded: s.superseded,
		Stale:      s.stale,
		Failed:     s.failed,
	}
}
