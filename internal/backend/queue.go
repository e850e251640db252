// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 NetDodge Contributors

package backend

import "sync"

// Queue collects completed-operation callbacks and dispatches them on Tick.
// Backends append completions in the order operations finish; Tick drains
// them synchronously on the calling goroutine, which is how the single-
// threaded cooperative model is preserved: application code and completion
// callbacks only ever run on the poll goroutine.
type Queue struct {
	mu    sync.Mutex
	ready []func()
}

// NewQueue creates an empty completion queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Defer schedules fn to run on a future Tick. Safe for concurrent use.
func (q *Queue) Defer(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ready = append(q.ready, fn)
}

// Tick drains and runs every completion queued so far, in completion order.
// Completions queued by callbacks during the drain run on the next Tick,
// never recursively within this one.
func (q *Queue) Tick() {
	q.mu.Lock()
	batch := q.ready
	q.ready = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
}

// Pending returns the number of queued completions.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ready)
}

// Subscription is a live notification registration. Remove detaches it;
// Remove on a nil or already-removed subscription is a no-op.
type Subscription struct {
	remove func()
}

// NewSubscription wraps a detach function.
func NewSubscription(remove func()) *Subscription {
	return &Subscription{remove: remove}
}

// Remove detaches the notification registration.
func (s *Subscription) Remove() {
	if s == nil || s.remove == nil {
		return
	}
	s.remove()
	s.remove = nil
}
