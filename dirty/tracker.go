// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dirty accumulates changed regions between paint passes and
// coalesces them into a minimal covering set of rectangles.
package dirty

import (
	"sync"

	"github.com/gogpu/surface"
)

// Default tuning constants.
const (
	// DefaultSlack is the coalescing slack factor: two disjoint regions
	// are merged when the area of their union is at most slack times the
	// sum of their areas. 1.25 allows up to 25% over-coverage per merge.
	DefaultSlack = 1.25

	// DefaultMaxRegions bounds the tracked region count. When exceeded,
	// the closest pair is merged regardless of slack; coverage is never
	// dropped.
	DefaultMaxRegions = 64
)

// Tracker accumulates dirty regions since the last flush.
//
// The flushed set is guaranteed to cover the union of every box passed to
// MarkDirty since the previous flush (no marked region is ever silently
// dropped), and no two returned regions overlap.
//
// Tracker is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	regions    []surface.Box
	slack      float64
	maxRegions int

	marked   uint64
	merged   uint64
	rejected uint64
}

// Stats contains tracker counters for instrumentation.
type Stats struct {
	// Marked is the number of accepted MarkDirty calls.
	Marked uint64
	// Merged is the number of region merges performed.
	Merged uint64
	// Rejected is the number of malformed boxes rejected.
	Rejected uint64
	// Pending is the current number of tracked regions.
	Pending int
}

// Option configures a Tracker during creation.
type Option func(*Tracker)

// WithSlack sets the coalescing slack factor.
// Values below 1 disable disjoint merging entirely (overlapping and
// touching regions still merge).
func WithSlack(slack float64) Option {
	return func(t *Tracker) {
		if slack > 0 {
			t.slack = slack
		}
	}
}

// WithMaxRegions bounds the number of tracked regions.
func WithMaxRegions(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxRegions = n
		}
	}
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		slack:      DefaultSlack,
		maxRegions: DefaultMaxRegions,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MarkDirty adds a region to the dirty set.
//
// Malformed boxes (negative extents, non-finite coordinates) are rejected
// and reported through the package logger; empty boxes are ignored.
// A region that intersects or touches an existing region is merged with
// it immediately, including chains of merges the union triggers.
func (t *Tracker) MarkDirty(b surface.Box) {
	if !b.Valid() {
		t.mu.Lock()
		t.rejected++
		t.mu.Unlock()
		surface.Logger().Warn("rejecting malformed dirty region", "bounds", b)
		return
	}
	if b.Empty() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.marked++
	t.insert(b)

	if len(t.regions) > t.maxRegions {
		t.mergeClosestPair()
	}
}

// insert adds b, absorbing every region it intersects.
// Caller must hold t.mu.
func (t *Tracker) insert(b surface.Box) {
	for {
		absorbed := false
		for i, r := range t.regions {
			if r.Intersects(b) {
				b = b.Union(r)
				last := len(t.regions) - 1
				t.regions[i] = t.regions[last]
				t.regions = t.regions[:last]
				t.merged++
				absorbed = true
				break
			}
		}
		// The grown union may now reach regions it previously missed.
		if !absorbed {
			break
		}
	}
	t.regions = append(t.regions, b)
}

// mergeClosestPair merges the pair whose union grows covered area the
// least. Caller must hold t.mu.
func (t *Tracker) mergeClosestPair() {
	if len(t.regions) < 2 {
		return
	}
	bestI, bestJ := 0, 1
	bestGrowth := growth(t.regions[0], t.regions[1])
	for i := 0; i < len(t.regions); i++ {
		for j := i + 1; j < len(t.regions); j++ {
			if g := growth(t.regions[i], t.regions[j]); g < bestGrowth {
				bestI, bestJ, bestGrowth = i, j, g
			}
		}
	}
	union := t.regions[bestI].Union(t.regions[bestJ])
	last := len(t.regions) - 1
	t.regions[bestJ] = t.regions[last]
	t.regions = t.regions[:last]
	t.regions[bestI] = t.regions[len(t.regions)-1]
	t.regions = t.regions[:len(t.regions)-1]
	t.merged++
	// Union may overlap remaining regions.
	t.insert(union)
}

// growth returns the extra area covered by replacing a and b with their
// union.
func growth(a, b surface.Box) float64 {
	return a.Union(b).Area() - a.Area() - b.Area()
}

// Flush returns the coalesced, non-overlapping covering set and clears
// the internal state atomically.
//
// Beyond the overlap merging that happens on insert, Flush additionally
// merges disjoint regions when the merge stays within the slack factor:
// the union area must not exceed slack times the sum of the pair's areas.
// Far-apart regions therefore survive as separate rectangles instead of
// degenerating into one giant region.
func (t *Tracker) Flush() []surface.Box {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.regions) == 0 {
		return nil
	}

	out := make([]surface.Box, len(t.regions))
	copy(out, t.regions)
	t.regions = t.regions[:0]

	out = t.coalesce(out)

	surface.Logger().Debug("dirty flush", "regions", len(out))
	return out
}

// coalesce applies slack-based merging until fixpoint.
// Caller must hold t.mu (updates the merge counter).
func (t *Tracker) coalesce(regions []surface.Box) []surface.Box {
	for {
		mergedAny := false
		for i := 0; i < len(regions) && !mergedAny; i++ {
			for j := i + 1; j < len(regions); j++ {
				a, b := regions[i], regions[j]
				union := a.Union(b)
				if a.Intersects(b) || union.Area() <= t.slack*(a.Area()+b.Area()) {
					regions[i] = union
					last := len(regions) - 1
					regions[j] = regions[last]
					regions = regions[:last]
					t.merged++
					mergedAny = true
					break
				}
			}
		}
		if !mergedAny {
			return regions
		}
	}
}

// IsEmpty reports whether no regions are pending.
func (t *Tracker) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regions) == 0
}

// Count returns the number of pending regions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.regions)
}

// Stats returns current tracker counters.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Marked:   t.marked,
		Merged:   t.merged,
		Rejected: t.rejected,
		Pending:  len(t.regions),
	}
}
