/*-
 * Copyright © 2016-2017, Jörg Pernfuß <code.jpe@gmail.com>
 * All rights reserved.
 *
 * Use of this source code is governed by a 2-clause BSD license
 * that can be found in the LICENSE file.
 */

package dispatch // import "github.com/mjolnir42/udplogd/internal/dispatch"

import (
	"sync"

	"github.com/mjolnir42/udplogd/internal/event"
)

// MemoryConsumer is the simplest possible Consumer: it just remembers
// every Event it has seen. Ported from udplog.py's MemoryLogger, which
// the original test suite used in place of hand-rolled mocks.
type MemoryConsumer struct {
	mu     sync.Mutex
	events []event.Event
}

// OnEvent appends ev to the in-memory log.
func (m *MemoryConsumer) OnEvent(ev event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of every Event recorded so far.
func (m *MemoryConsumer) Events() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Reset clears the recorded log.
func (m *MemoryConsumer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
