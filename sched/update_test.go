// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sched

import (
	"testing"

	"github.com/gogpu/surface"
)

func TestLowPriorityDefersToRefresh(t *testing.T) {
	loop := NewManualLoop()
	var flushed []Batch
	s := New(loop, func(b Batch) { flushed = append(flushed, b) })

	s.Queue(Update{View: &ViewDelta{X: Float(10)}, Priority: Low})

	// Nothing flushes on a plain turn.
	if loop.Pump(); len(flushed) != 0 {
		t.Fatal("expected low-priority batch to wait for refresh")
	}
	if loop.Refresh(); len(flushed) != 1 {
		t.Fatal("expected flush at refresh boundary")
	}
	if got := *flushed[0].View.X; got != 10 {
		t.Errorf("expected X=10, got %v", got)
	}
}

// TestHighPriorityUpgradesToImmediate: queueing low then high before any
// flush must use the immediate path, with later fields winning on
// conflict.
func TestHighPriorityUpgradesToImmediate(t *testing.T) {
	loop := NewManualLoop()
	var flushed []Batch
	s := New(loop, func(b Batch) { flushed = append(flushed, b) })

	s.Queue(Update{View: &ViewDelta{X: Float(1), Y: Float(2)}, Priority: Low})
	s.Queue(Update{View: &ViewDelta{X: Float(5)}, Priority: High})

	// The immediate path runs on the next turn, before any refresh.
	if loop.Pump(); len(flushed) != 1 {
		t.Fatal("expected immediate flush on next turn")
	}
	b := flushed[0]
	if b.Priority != High {
		t.Errorf("expected batch priority high, got %v", b.Priority)
	}
	if got := *b.View.X; got != 5 {
		t.Errorf("expected later X=5 to win, got %v", got)
	}
	// Non-conflicting field from the earlier update is retained.
	if got := *b.View.Y; got != 2 {
		t.Errorf("expected Y=2 retained, got %v", got)
	}

	// The stale deferred callback must not flush a second time.
	if loop.Refresh(); len(flushed) != 1 {
		t.Error("expected no second flush from stale refresh callback")
	}
}

func TestElementDeltaLastWriteWins(t *testing.T) {
	loop := NewManualLoop()
	var flushed []Batch
	s := New(loop, func(b Batch) { flushed = append(flushed, b) })

	first := []surface.Element{{ID: "a"}}
	second := []surface.Element{{ID: "b"}, {ID: "c"}}
	s.Queue(Update{Elements: first, Priority: Medium})
	s.Queue(Update{Elements: second, Priority: Medium})
	loop.Refresh()

	if len(flushed) != 1 {
		t.Fatal("expected one flush")
	}
	b := flushed[0]
	if !b.HasElements {
		t.Fatal("expected element replacement in batch")
	}
	if len(b.Elements) != 2 || b.Elements[0].ID != "b" {
		t.Errorf("expected most recent element delta to win, got %v", b.Elements)
	}
}

func TestPriorityThenArrivalOrder(t *testing.T) {
	loop := NewManualLoop()
	var flushed []Batch
	s := New(loop, func(b Batch) { flushed = append(flushed, b) })

	// A later low-priority element delta must not beat a high one.
	highEls := []surface.Element{{ID: "high"}}
	lowEls := []surface.Element{{ID: "low"}}
	s.Queue(Update{Elements: highEls, Priority: High})
	s.Queue(Update{Elements: lowEls, Priority: Low})
	loop.Pump()

	if len(flushed) != 1 {
		t.Fatal("expected one flush")
	}
	if got := flushed[0].Elements[0].ID; got != "high" {
		t.Errorf("expected high-priority delta to win over later low, got %v", got)
	}
}

// TestMergeIdempotence: flushing a batch containing the same view update
// twice yields the same merged result as flushing it once.
func TestMergeIdempotence(t *testing.T) {
	run := func(times int) Batch {
		loop := NewManualLoop()
		var flushed []Batch
		s := New(loop, func(b Batch) { flushed = append(flushed, b) })
		for i := 0; i < times; i++ {
			s.Queue(Update{View: &ViewDelta{X: Float(7), Zoom: Float(2)}, Priority: Low})
		}
		loop.Refresh()
		if len(flushed) != 1 {
			t.Fatalf("expected one flush, got %d", len(flushed))
		}
		return flushed[0]
	}

	once := run(1)
	twice := run(2)
	if *once.View.X != *twice.View.X || *once.View.Zoom != *twice.View.Zoom {
		t.Errorf("expected idempotent merge, got %+v vs %+v", once.View, twice.View)
	}
}

func TestUpdatesDuringFlushStartNextCycle(t *testing.T) {
	loop := NewManualLoop()
	var s *Scheduler
	var flushed []Batch
	requeued := false
	s = New(loop, func(b Batch) {
		flushed = append(flushed, b)
		if !requeued {
			requeued = true
			s.Queue(Update{View: &ViewDelta{Y: Float(3)}, Priority: Low})
		}
	})

	s.Queue(Update{View: &ViewDelta{X: Float(1)}, Priority: Low})
	loop.Refresh()

	if len(flushed) != 1 {
		t.Fatalf("expected first flush only, got %d", len(flushed))
	}
	if !s.Pending() {
		t.Error("expected re-entered BatchPending after mid-flush queue")
	}

	loop.Refresh()
	if len(flushed) != 2 {
		t.Fatalf("expected second cycle to flush, got %d", len(flushed))
	}
	if flushed[1].View.Y == nil || *flushed[1].View.Y != 3 {
		t.Errorf("expected mid-flush update preserved, got %+v", flushed[1].View)
	}
	if s.Pending() {
		t.Error("expected scheduler idle after second flush")
	}
}

func TestEmptyElementSliceClears(t *testing.T) {
	loop := NewManualLoop()
	var flushed []Batch
	s := New(loop, func(b Batch) { flushed = append(flushed, b) })

	s.Queue(Update{Elements: []surface.Element{}, Priority: Low})
	loop.Refresh()

	if len(flushed) != 1 || !flushed[0].HasElements {
		t.Fatal("expected empty replacement to be delivered")
	}
	if len(flushed[0].Elements) != 0 {
		t.Errorf("expected empty element list, got %v", flushed[0].Elements)
	}
}

func TestStats(t *testing.T) {
	loop := NewManualLoop()
	s := New(loop, func(Batch) {})

	s.Queue(Update{View: &ViewDelta{X: Float(1)}, Priority: High})
	loop.Pump()
	s.Queue(Update{View: &ViewDelta{X: Float(2)}, Priority: Low})
	loop.Refresh()

	got := s.Stats()
	if got.Queued != 2 {
		t.Errorf("expected 2 queued, got %d", got.Queued)
	}
	if got.Flushes != 2 {
		t.Errorf("expected 2 flushes, got %d", got.Flushes)
	}
	if got.UrgentFlushes != 1 {
		t.Errorf("expected 1 urgent flush, got %d", got.UrgentFlushes)
	}
}

func TestManualLoopSnapshotsQueue(t *testing.T) {
	loop := NewManualLoop()
	ran := 0
	loop.NextTurn(func() {
		ran++
		// Rescheduling from inside a pump waits for the next pump.
		loop.NextTurn(func() { ran++ })
	})

	if n := loop.Pump(); n != 1 || ran != 1 {
		t.Fatalf("expected exactly one callback per pump, ran=%d", ran)
	}
	if n := loop.Pump(); n != 1 || ran != 2 {
		t.Errorf("expected rescheduled callback on next pump, ran=%d", ran)
	}
	if loop.Pending() != 0 {
		t.Errorf("expected no pending callbacks, got %d", loop.Pending())
	}
}
