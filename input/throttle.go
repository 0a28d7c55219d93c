// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package input rate-limits high-frequency pointer and wheel events
// before they reach the update scheduler.
package input

import (
	"sync"
	"time"

	"github.com/gogpu/surface"
)

// Default minimum intervals per event class.
const (
	// DefaultMotionInterval throttles continuous pointer motion to
	// roughly one event per display refresh.
	DefaultMotionInterval = 16 * time.Millisecond

	// DefaultWheelInterval throttles wheel deltas at twice the motion
	// rate; scrolling tolerates less latency than it generates events.
	DefaultWheelInterval = 8 * time.Millisecond
)

// Intervals holds the minimum spacing between accepted events per class.
// Zero means the class is unthrottled.
type Intervals struct {
	Motion time.Duration
	Wheel  time.Duration
	Button time.Duration
	Other  time.Duration
}

// DefaultIntervals returns the default throttle configuration: motion at
// 16ms, wheel at 8ms, everything else unthrottled.
func DefaultIntervals() Intervals {
	return Intervals{
		Motion: DefaultMotionInterval,
		Wheel:  DefaultWheelInterval,
	}
}

// ClassStats contains accept/drop counters for one event class.
type ClassStats struct {
	Accepted uint64
	Dropped  uint64
}

// Stats contains throttle counters per event class.
type Stats struct {
	Motion ClassStats
	Wheel  ClassStats
	Button ClassStats
	Other  ClassStats
}

// Throttle is a rate limiter with loss: an event of a throttled class
// arriving before the minimum interval has elapsed since the last
// accepted event of that class is dropped outright, not queued or
// delayed. This is deliberately not a debouncer.
//
// Throttle is safe for concurrent use.
type Throttle struct {
	mu        sync.Mutex
	intervals Intervals
	last      map[surface.EventClass]time.Time
	stats     map[surface.EventClass]*ClassStats
	now       func() time.Time
}

// Option configures a Throttle during creation.
type Option func(*Throttle)

// WithIntervals overrides the per-class minimum intervals.
func WithIntervals(iv Intervals) Option {
	return func(t *Throttle) {
		t.intervals = iv
	}
}

// WithClock injects a time source. Tests use this for determinism.
func WithClock(now func() time.Time) Option {
	return func(t *Throttle) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a throttle with the default intervals.
func New(opts ...Option) *Throttle {
	t := &Throttle{
		intervals: DefaultIntervals(),
		last:      make(map[surface.EventClass]time.Time),
		stats: map[surface.EventClass]*ClassStats{
			surface.ClassMotion: {},
			surface.ClassWheel:  {},
			surface.ClassButton: {},
			surface.ClassOther:  {},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// interval returns the configured minimum spacing for a class.
func (t *Throttle) interval(class surface.EventClass) time.Duration {
	switch class {
	case surface.ClassMotion:
		return t.intervals.Motion
	case surface.ClassWheel:
		return t.intervals.Wheel
	case surface.ClassButton:
		return t.intervals.Button
	default:
		return t.intervals.Other
	}
}

// Allow reports whether the event passes the rate limit. The event's own
// timestamp is ignored for spacing; arrival time at the throttle is what
// matters (host event timestamps are not monotonic across devices).
func (t *Throttle) Allow(ev surface.PointerEvent) bool {
	min := t.interval(ev.Class)

	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stats[ev.Class]
	if st == nil {
		st = &ClassStats{}
		t.stats[ev.Class] = st
	}

	if min > 0 {
		if last, ok := t.last[ev.Class]; ok {
			if t.now().Sub(last) < min {
				st.Dropped++
				return false
			}
		}
	}

	t.last[ev.Class] = t.now()
	st.Accepted++
	return true
}

// Stats returns current accept/drop counters.
func (t *Throttle) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Stats{
		Motion: *t.stats[surface.ClassMotion],
		Wheel:  *t.stats[surface.ClassWheel],
		Button: *t.stats[surface.ClassButton],
		Other:  *t.stats[surface.ClassOther],
	}
}

// Reset clears the per-class acceptance timestamps so the next event of
// every class is accepted regardless of spacing.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[surface.EventClass]time.Time)
}
