// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package sched

import (
	"sort"
	"sync"

	"github.com/gogpu/surface"
)

// Priority orders updates within a batch and selects the scheduling
// path: a batch containing any High update flushes on the next available
// turn instead of waiting for the refresh boundary.
type Priority int

const (
	Low Priority = iota
	Medium
	High
)

// String returns the priority name for logging.
func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// ViewDelta is a partial view-state change. Nil fields are "not
// specified" and retain whatever an earlier update in the batch set.
type ViewDelta struct {
	X, Y, W, H *float64
	Zoom       *float64
}

// merge overwrites d's fields with o's specified fields.
func (d *ViewDelta) merge(o ViewDelta) {
	if o.X != nil {
		d.X = o.X
	}
	if o.Y != nil {
		d.Y = o.Y
	}
	if o.W != nil {
		d.W = o.W
	}
	if o.H != nil {
		d.H = o.H
	}
	if o.Zoom != nil {
		d.Zoom = o.Zoom
	}
}

// Float returns a pointer to f, for building ViewDelta literals.
func Float(f float64) *float64 { return &f }

// Update is a queued state-mutation request. At least one of Elements
// and View should be set.
//
// Elements is a bulk replacement of the element list, not a structural
// merge: the winning update's slice replaces the engine's element
// snapshot wholesale (per-element diffing happens downstream once the
// merged batch is applied). A nil slice means "no element change"; an
// empty non-nil slice clears the surface.
type Update struct {
	Elements []surface.Element
	View     *ViewDelta
	Priority Priority
}

// Batch is the merged result of one flush cycle.
type Batch struct {
	// Elements is the winning element replacement; meaningful only when
	// HasElements is true.
	Elements    []surface.Element
	HasElements bool

	// View is the field-wise merged view delta; meaningful only when
	// HasView is true.
	View    ViewDelta
	HasView bool

	// Priority is the highest priority present in the batch.
	Priority Priority
}

// state is the scheduler's lifecycle state.
type state int

const (
	stateIdle state = iota
	stateBatchPending
	stateFlushing
)

// Stats contains scheduler counters.
type Stats struct {
	// Queued is the number of updates accepted.
	Queued uint64
	// Flushes is the number of completed flush cycles.
	Flushes uint64
	// UrgentFlushes is the number of flushes taken on the immediate
	// (next turn) path.
	UrgentFlushes uint64
}

// queued tags an update with its arrival order.
type queued struct {
	update Update
	seq    uint64
}

// Scheduler batches updates and triggers at most one flush per
// scheduling quantum.
//
// The state machine has two externally visible states: Idle and
// BatchPending. The first Queue call in Idle schedules a flush:
// immediately (next turn) when the update is High priority, at the next
// refresh boundary otherwise. Updates arriving while a batch is pending
// join it; a High arrival upgrades a deferred flush to the immediate
// path. Updates arriving during the flush callback start a new batch for
// a subsequent cycle; a batch is never flushed twice and never observed
// half-merged.
//
// Scheduler is safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	loop    RunLoop
	onFlush func(Batch)

	queue  []queued
	seq    uint64
	state  state
	urgent bool // current pending flush is on the immediate path

	queuedCount   uint64
	flushCount    uint64
	urgentFlushes uint64
}

// New creates a scheduler delivering merged batches to onFlush via the
// given run loop.
func New(loop RunLoop, onFlush func(Batch)) *Scheduler {
	return &Scheduler{loop: loop, onFlush: onFlush}
}

// Queue adds an update to the current batch, arming a flush if none is
// pending.
func (s *Scheduler) Queue(u Update) {
	s.mu.Lock()
	s.seq++
	s.queue = append(s.queue, queued{update: u, seq: s.seq})
	s.queuedCount++

	urgent := u.Priority == High
	arm := false
	upgrade := false
	switch s.state {
	case stateIdle:
		s.state = stateBatchPending
		s.urgent = urgent
		arm = true
	case stateBatchPending:
		if urgent && !s.urgent {
			s.urgent = true
			upgrade = true
		}
	case stateFlushing:
		// Joined the next cycle; rearmed when the flush completes.
	}
	s.mu.Unlock()

	if arm {
		s.arm(urgent)
	} else if upgrade {
		// The deferred callback still fires but finds nothing pending.
		s.arm(true)
	}
}

// arm schedules the flush callback on the requested path.
func (s *Scheduler) arm(urgent bool) {
	if urgent {
		s.loop.NextTurn(s.flush)
	} else {
		s.loop.NextRefresh(s.flush)
	}
}

// flush merges and delivers the pending batch.
func (s *Scheduler) flush() {
	s.mu.Lock()
	if s.state != stateBatchPending || len(s.queue) == 0 {
		// Stale callback: an upgraded or completed batch already ran.
		s.mu.Unlock()
		return
	}
	batch := s.queue
	s.queue = nil
	s.state = stateFlushing
	urgent := s.urgent
	s.mu.Unlock()

	merged := merge(batch)

	s.onFlush(merged)

	s.mu.Lock()
	s.flushCount++
	if urgent {
		s.urgentFlushes++
	}
	if len(s.queue) > 0 {
		// Updates arrived during the flush: start the next cycle.
		s.state = stateBatchPending
		rearm := false
		for _, q := range s.queue {
			if q.update.Priority == High {
				rearm = true
				break
			}
		}
		s.urgent = rearm
		s.mu.Unlock()
		s.arm(rearm)
		return
	}
	s.state = stateIdle
	s.mu.Unlock()
}

// merge collapses a batch in priority-then-arrival order: the update
// sequence is applied lowest precedence first, so the highest-priority,
// latest-arriving values win. Element replacements are last-write-wins;
// view deltas merge field-wise.
func merge(batch []queued) Batch {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].update.Priority != batch[j].update.Priority {
			return batch[i].update.Priority < batch[j].update.Priority
		}
		return batch[i].seq < batch[j].seq
	})

	var out Batch
	for _, q := range batch {
		u := q.update
		if u.Priority > out.Priority {
			out.Priority = u.Priority
		}
		if u.Elements != nil {
			out.Elements = u.Elements
			out.HasElements = true
		}
		if u.View != nil {
			out.View.merge(*u.View)
			out.HasView = true
		}
	}
	return out
}

// Pending reports whether a batch is currently pending (or mid-flush).
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateIdle || len(s.queue) > 0
}

// Stats returns current scheduler counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Queued:        s.queuedCount,
		Flushes:       s.flushCount,
		UrgentFlushes: s.urgentFlushes,
	}
}
