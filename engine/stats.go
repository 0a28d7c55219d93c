// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"github.com/gogpu/surface/cache"
	"github.com/gogpu/surface/dirty"
	"github.com/gogpu/surface/input"
	"github.com/gogpu/surface/prerender"
	"github.com/gogpu/surface/sched"
)

// Stats aggregates the counters of every component plus the engine's
// own paint accounting.
type Stats struct {
	// Paints is the number of completed paint passes.
	Paints uint64
	// Rasterized is the number of elements rasterized across all passes.
	Rasterized uint64
	// CacheServed is the number of elements served from the cache.
	CacheServed uint64
	// Failures is the number of per-element rasterization failures.
	Failures uint64

	Cache     cache.Stats
	Dirty     dirty.Stats
	Updates   sched.Stats
	Throttle  input.Stats
	Prerender prerender.Stats
}

// Stats returns a snapshot of all engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	s := Stats{
		Paints:      e.paints,
		Rasterized:  e.rasterized,
		CacheServed: e.served,
		Failures:    e.failures,
	}
	e.mu.Unlock()

	s.Cache = e.cache.Stats()
	s.Dirty = e.dirty.Stats()
	s.Updates = e.updates.Stats()
	s.Throttle = e.throttle.Stats()
	s.Prerender = e.pre.Stats()
	return s
}
