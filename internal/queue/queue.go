/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package queue implements the bounded, drop-oldest FIFO with
// push-producer semantics described in spec §4.E: a queue that hands
// items straight to a callback while idle, buffers them while paused or
// while a callback is in flight, and drops the oldest entry on overflow.
//
// Design Note §9 replaces the Python original's deferred-chain push
// producer with an explicit state machine plus a bounded mailbox; here
// that mailbox is a plain slice guarded by a mutex, drained by a single
// dedicated goroutine so that at most one callback is ever in flight.
package queue // import "github.com/mjolnir42/udplogd/internal/queue"

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/event"
)

// State names the queue's four possible states.
type State int

// Queue states, per spec §4.E / §4.J's "plus a terminal stopped".
const (
	Idle State = iota
	Draining
	Paused
	Stopped
)

// String renders the state name for logging.
func (s State) String() string {
	switch s {
	case Idle:
		return `idle`
	case Draining:
		return `draining`
	case Paused:
		return `paused`
	case Stopped:
		return `stopped`
	default:
		return `unknown`
	}
}

// Callback is invoked with exactly one Event per call; at most one
// invocation is ever in flight. A returned error is logged and does not
// stop draining.
type Callback func(event.Event) error

// Queue is a bounded, drop-oldest FIFO with push-producer semantics.
type Queue struct {
	name     string
	callback Callback
	size     int // 0 means unbounded

	mu     sync.Mutex
	items  []event.Event
	paused bool
	state  State

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New returns a Queue that delivers to callback. size caps the number of
// buffered items; 0 means unbounded. The queue starts paused: callers
// Resume() it once their transport is ready to receive, matching the
// session lifecycle in spec §4.F (sinks register their queue's Put with
// the Dispatcher only once connected, but the queue itself must exist
// earlier so early Puts are not lost).
func New(name string, size int, callback Callback) *Queue {
	q := &Queue{
		name:     name,
		callback: callback,
		size:     size,
		paused:   true,
		state:    Paused,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Put appends obj for delivery. If the queue is idle (not paused, no
// backlog, worker waiting), the item is handed to the worker
// immediately; otherwise it is appended to the pending buffer, dropping
// the oldest entry first if the buffer is at capacity.
func (q *Queue) Put(ev event.Event) {
	q.mu.Lock()
	if q.state == Stopped {
		q.mu.Unlock()
		return
	}

	if q.size > 0 && len(q.items) >= q.size {
		dropped := q.items[0]
		q.items = q.items[1:]
		logrus.Warnf(`Queue[%s], dropping oldest queued event for category %s (queue full at %d)`,
			q.name, dropped.Category, q.size)
	}
	q.items = append(q.items, ev)
	if !q.paused {
		q.state = Draining
	}
	q.mu.Unlock()

	q.signal()
}

// Pause stops new drain steps from being scheduled. Any callback
// currently in flight still completes; queued items accumulate (subject
// to the size cap) until Resume.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	if q.state != Stopped {
		q.state = Paused
	}
	q.mu.Unlock()
}

// Resume clears the paused flag and, if items are queued, resumes
// draining.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	if q.state != Stopped {
		if len(q.items) > 0 {
			q.state = Draining
		} else {
			q.state = Idle
		}
	}
	q.mu.Unlock()
	q.signal()
}

// Stop permanently halts draining. Further Puts are accepted but never
// delivered. Stop blocks until any in-flight callback has returned.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.state == Stopped {
		q.mu.Unlock()
		return
	}
	q.state = Stopped
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}

// State reports the queue's current state.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len reports the number of currently buffered (not yet delivered)
// items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// run is the queue's single drain goroutine: it pulls at most one item
// at a time and invokes the callback, looping immediately afterward
// (the Go analogue of the Python original's zero-delay timer
// reschedule).
func (q *Queue) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.state == Stopped {
			q.mu.Unlock()
			return
		}
		if q.paused || len(q.items) == 0 {
			q.state = Idle
			if q.paused {
				q.state = Paused
			}
			q.mu.Unlock()
			select {
			case <-q.wake:
				continue
			case <-q.done:
				return
			}
		}

		ev := q.items[0]
		q.items = q.items[1:]
		q.state = Draining
		q.mu.Unlock()

		if err := q.callback(ev); err != nil {
			logrus.Errorf(`Queue[%s], callback error for category %s: %s`, q.name, ev.Category, err)
		}
	}
}
