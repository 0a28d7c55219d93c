// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package engine

import (
	"time"

	"github.com/gogpu/surface/cache"
	"github.com/gogpu/surface/input"
	"github.com/gogpu/surface/sched"
)

// DefaultCullMargin is how far beyond the viewport, in content units,
// elements are still considered visible. The margin keeps elements
// entering the viewport during a scroll from popping in late.
const DefaultCullMargin = 100.0

// config collects constructor parameters before the components are
// built.
type config struct {
	loop       sched.RunLoop
	cacheOpts  []cache.Option
	inputOpts  []input.Option
	slack      float64
	maxRegions int
	cullMargin float64
	lookahead  float64
}

// Option configures an Engine during creation.
type Option func(*config)

// WithRunLoop injects the host's run loop. The default is a ManualLoop,
// which suits headless use and tests; interactive hosts supply their
// frame loop.
func WithRunLoop(loop sched.RunLoop) Option {
	return func(c *config) {
		if loop != nil {
			c.loop = loop
		}
	}
}

// WithCacheBudgets sets the per-tier cache byte ceilings.
func WithCacheBudgets(b cache.Budgets) Option {
	return func(c *config) {
		c.cacheOpts = append(c.cacheOpts, cache.WithBudgets(b))
	}
}

// WithCacheThresholds sets the cache tier cost boundaries.
func WithCacheThresholds(th cache.Thresholds) Option {
	return func(c *config) {
		c.cacheOpts = append(c.cacheOpts, cache.WithThresholds(th))
	}
}

// WithRegionTileSize sets the region-tile edge length in content units.
func WithRegionTileSize(size float64) Option {
	return func(c *config) {
		c.cacheOpts = append(c.cacheOpts, cache.WithTileSize(size))
	}
}

// WithCoalesceSlack sets the dirty-region coalescing slack factor.
func WithCoalesceSlack(slack float64) Option {
	return func(c *config) {
		c.slack = slack
	}
}

// WithMaxDirtyRegions bounds the number of pending dirty regions.
func WithMaxDirtyRegions(n int) Option {
	return func(c *config) {
		c.maxRegions = n
	}
}

// WithCullMargin sets the visibility margin around the viewport.
func WithCullMargin(margin float64) Option {
	return func(c *config) {
		if margin >= 0 {
			c.cullMargin = margin
		}
	}
}

// WithThrottleIntervals overrides the input throttle's per-class
// minimum intervals.
func WithThrottleIntervals(iv input.Intervals) Option {
	return func(c *config) {
		c.inputOpts = append(c.inputOpts, input.WithIntervals(iv))
	}
}

// WithClock injects the time source used by the input throttle.
// Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.inputOpts = append(c.inputOpts, input.WithClock(now))
	}
}

// WithPrerenderLookahead sets how far beyond the viewport idle
// pre-rendering plans work.
func WithPrerenderLookahead(margin float64) Option {
	return func(c *config) {
		if margin >= 0 {
			c.lookahead = margin
		}
	}
}
