/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

// Package dispatch implements the in-process event bus: a broadcast
// point that fans every ingested Event out to a dynamic set of
// registered consumers, isolating consumer failures from one another.
package dispatch // import "github.com/mjolnir42/udplogd/internal/dispatch"

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mjolnir42/udplogd/internal/event"
)

// Consumer is registered with a Dispatcher to receive every dispatched
// Event. Per Design Note §9, this replaces the Python original's bare
// callable with an interface.
type Consumer interface {
	OnEvent(event.Event)
}

// ConsumerFunc adapts a plain function to the Consumer interface.
type ConsumerFunc func(event.Event)

// OnEvent calls f(ev).
func (f ConsumerFunc) OnEvent(ev event.Event) { f(ev) }

// Token is an opaque handle returned by Register, used to Unregister a
// consumer without relying on interface-value identity.
type Token uint64

// Dispatcher maintains the set of currently registered consumers and
// broadcasts every dispatched Event to each of them exactly once. The
// consumer set is the sole piece of shared mutable state in the system
// (spec §5); it is guarded by a single RWMutex rather than the single
// scheduler thread the Python original relies on.
type Dispatcher struct {
	mu        sync.RWMutex
	consumers map[Token]Consumer
	next      Token
}

// New returns an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		consumers: make(map[Token]Consumer),
	}
}

// Register adds c to the consumer set and returns a token that can later
// be passed to Unregister. Register is not idempotent: identity here is
// by token, not by c's value, so every call adds a new entry under a
// fresh token, and a consumer registered twice receives each event twice.
func (d *Dispatcher) Register(c Consumer) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.next++
	tok := d.next
	d.consumers[tok] = c
	return tok
}

// Unregister removes the consumer registered under tok. Unregistering
// an unknown or already-removed token is a no-op.
func (d *Dispatcher) Unregister(tok Token) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.consumers, tok)
}

// Dispatch calls OnEvent exactly once on every currently registered
// consumer. A panic from one consumer is recovered and logged; it does
// not prevent delivery to the remaining consumers, and no consumer
// observes a partial mutation made by another (each consumer runs
// against the same immutable ev).
func (d *Dispatcher) Dispatch(ev event.Event) {
	d.mu.RLock()
	// Copy the live set under the lock so a consumer that registers or
	// unregisters during delivery cannot deadlock against us or see a
	// torn iteration.
	snapshot := make([]Consumer, 0, len(d.consumers))
	for _, c := range d.consumers {
		snapshot = append(snapshot, c)
	}
	d.mu.RUnlock()

	for _, c := range snapshot {
		deliver(c, ev)
	}
}

// Len reports the number of currently registered consumers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.consumers)
}

func deliver(c Consumer, ev event.Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf(`Dispatcher, consumer panicked during dispatch: %v`, r)
		}
	}()
	c.OnEvent(ev)
}
