// Package surface implements an incremental-rendering core for an
// interactive 2D diagram surface holding many independently movable and
// resizable elements.
//
// # Overview
//
// surface redraws only what changed, skips off-screen work, reuses
// previously rasterized pixels, and coalesces bursts of state mutation
// into a bounded number of paint passes per display refresh. It does not
// draw anything itself: rasterization of an element is a supplied
// primitive, and the element data model is owned by the host.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/surface"
//	    "github.com/gogpu/surface/engine"
//	)
//
//	eng := engine.New(store, rasterizer)
//	eng.QueueUpdate(sched.Update{View: &sched.ViewDelta{Zoom: surface.Float(2)}})
//	target := engine.NewPixmapTarget(800, 600)
//	result, err := eng.Paint(target)
//
// # Architecture
//
// The core is organized into:
//   - Root package: geometry (Box, Point, Vec2), Viewport, Element and
//     collaborator interfaces, Pixmap payloads, render contexts and cache
//     keys, viewport culling, pointer events, logging
//   - dirty: accumulates and coalesces changed regions between paints
//   - cache: tiered render cache (per-element, per-region, whole-surface)
//     with byte-budget LRU eviction
//   - sched: batches mutation requests and triggers at most one paint per
//     scheduling quantum
//   - input: rate limiter for high-frequency pointer and wheel events
//   - prerender: idle-time pre-rasterization of predicted cache misses
//   - engine: ties the components together into paint passes
//
// # Coordinate System
//
// Uses standard computer graphics coordinates:
//   - Origin (0,0) at top-left
//   - X increases right
//   - Y increases down
//
// Content coordinates are float64; pixel payloads are RGBA8.
//
// # Concurrency
//
// The core is designed for a single cooperative render loop with injected
// "next turn", "next refresh" and "idle" yield points (see sched.RunLoop).
// The cache and throttle are additionally safe for concurrent use so hosts
// may feed input from a separate goroutine.
package surface
