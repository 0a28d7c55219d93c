// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package sched batches incoming state-mutation requests and triggers at
// most one paint pass per scheduling quantum.
package sched

import "sync"

// RunLoop is the injected scheduling capability. The core never talks to
// a display or event loop directly; the host supplies whichever yield
// primitives fit its environment (a UI event loop, a vsync callback, a
// test harness).
//
// Callbacks are one-shot: each call schedules fn exactly once.
type RunLoop interface {
	// NextTurn schedules fn for the next available execution turn,
	// as soon as possible and without waiting for a frame boundary.
	NextTurn(fn func())

	// NextRefresh schedules fn for the next display-refresh boundary.
	NextRefresh(fn func())

	// NextIdle schedules fn for the next window in which the foreground
	// has no pending work.
	NextIdle(fn func())
}

// ManualLoop is a deterministic RunLoop for tests and headless hosts.
// Scheduled callbacks run only when the owner pumps the corresponding
// queue.
//
// ManualLoop is safe for concurrent use.
type ManualLoop struct {
	mu        sync.Mutex
	turns     []func()
	refreshes []func()
	idles     []func()
}

// NewManualLoop creates an empty manual loop.
func NewManualLoop() *ManualLoop {
	return &ManualLoop{}
}

// NextTurn implements RunLoop.
func (l *ManualLoop) NextTurn(fn func()) {
	l.mu.Lock()
	l.turns = append(l.turns, fn)
	l.mu.Unlock()
}

// NextRefresh implements RunLoop.
func (l *ManualLoop) NextRefresh(fn func()) {
	l.mu.Lock()
	l.refreshes = append(l.refreshes, fn)
	l.mu.Unlock()
}

// NextIdle implements RunLoop.
func (l *ManualLoop) NextIdle(fn func()) {
	l.mu.Lock()
	l.idles = append(l.idles, fn)
	l.mu.Unlock()
}

// Pump runs the callbacks scheduled for the next turn and returns how
// many ran. Callbacks scheduled while pumping wait for the next Pump.
func (l *ManualLoop) Pump() int {
	return l.run(&l.turns)
}

// Refresh delivers a display-refresh boundary: runs the callbacks
// scheduled for it and returns how many ran.
func (l *ManualLoop) Refresh() int {
	return l.run(&l.refreshes)
}

// Idle delivers an idle window: runs the callbacks scheduled for it and
// returns how many ran. A callback rescheduling itself waits for the
// next Idle.
func (l *ManualLoop) Idle() int {
	return l.run(&l.idles)
}

// Pending returns the number of scheduled callbacks across all queues.
func (l *ManualLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns) + len(l.refreshes) + len(l.idles)
}

// run snapshots a queue and executes it outside the lock.
func (l *ManualLoop) run(queue *[]func()) int {
	l.mu.Lock()
	fns := *queue
	*queue = nil
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}
