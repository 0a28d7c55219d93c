// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package input

import (
	"testing"
	"time"

	"github.com/gogpu/surface"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func motion() surface.PointerEvent {
	return surface.PointerEvent{Class: surface.ClassMotion}
}

func TestFirstEventAccepted(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	if !th.Allow(motion()) {
		t.Error("expected first motion event accepted")
	}
}

func TestMotionDroppedWithinInterval(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	th.Allow(motion())
	clock.advance(5 * time.Millisecond)
	if th.Allow(motion()) {
		t.Error("expected motion within 16ms to be dropped")
	}
	clock.advance(11 * time.Millisecond) // 16ms since accept
	if !th.Allow(motion()) {
		t.Error("expected motion at the interval boundary to be accepted")
	}
}

// TestThrottleBound is the throttle-bound property: for a motion-class
// event stream, no two accepted events are closer than the minimum
// interval.
func TestThrottleBound(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	var accepted []time.Time
	// 1ms event stream for one second.
	for i := 0; i < 1000; i++ {
		if th.Allow(motion()) {
			accepted = append(accepted, clock.t)
		}
		clock.advance(time.Millisecond)
	}

	if len(accepted) == 0 {
		t.Fatal("expected some accepted events")
	}
	for i := 1; i < len(accepted); i++ {
		if gap := accepted[i].Sub(accepted[i-1]); gap < DefaultMotionInterval {
			t.Fatalf("accepted events %d and %d only %v apart", i-1, i, gap)
		}
	}
}

func TestDropIsLossNotDelay(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	th.Allow(motion())
	clock.advance(10 * time.Millisecond)
	th.Allow(motion()) // dropped

	// A dropped event must not reset the window: 16ms after the last
	// accepted event, the next one passes.
	clock.advance(6 * time.Millisecond)
	if !th.Allow(motion()) {
		t.Error("expected drop to not extend the throttle window")
	}

	s := th.Stats()
	if s.Motion.Accepted != 2 || s.Motion.Dropped != 1 {
		t.Errorf("expected 2 accepted / 1 dropped, got %+v", s.Motion)
	}
}

func TestClassesThrottleIndependently(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	th.Allow(motion())
	// A wheel event right after a motion event is not affected by the
	// motion window.
	if !th.Allow(surface.PointerEvent{Class: surface.ClassWheel}) {
		t.Error("expected wheel class to throttle independently")
	}

	clock.advance(4 * time.Millisecond)
	if th.Allow(surface.PointerEvent{Class: surface.ClassWheel}) {
		t.Error("expected wheel within 8ms to be dropped")
	}
	clock.advance(4 * time.Millisecond)
	if !th.Allow(surface.PointerEvent{Class: surface.ClassWheel}) {
		t.Error("expected wheel at 8ms to be accepted")
	}
}

func TestUnthrottledClasses(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	for i := 0; i < 10; i++ {
		if !th.Allow(surface.PointerEvent{Class: surface.ClassButton}) {
			t.Fatal("expected button events to be unthrottled")
		}
		if !th.Allow(surface.PointerEvent{Class: surface.ClassOther}) {
			t.Fatal("expected other events to be unthrottled")
		}
	}
}

func TestCustomIntervals(t *testing.T) {
	clock := newFakeClock()
	th := New(
		WithClock(clock.now),
		WithIntervals(Intervals{Motion: 100 * time.Millisecond}),
	)

	th.Allow(motion())
	clock.advance(50 * time.Millisecond)
	if th.Allow(motion()) {
		t.Error("expected custom 100ms interval to apply")
	}

	// Wheel is unthrottled in this configuration.
	if !th.Allow(surface.PointerEvent{Class: surface.ClassWheel}) {
		t.Error("expected zero interval to mean unthrottled")
	}
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	th := New(WithClock(clock.now))

	th.Allow(motion())
	th.Reset()
	if !th.Allow(motion()) {
		t.Error("expected event after Reset to be accepted")
	}
}
