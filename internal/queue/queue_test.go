package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/mjolnir42/udplogd/internal/event"
)

func TestQueueDeliversWhenResumed(t *testing.T) {
	var mu sync.Mutex
	var got []event.Event
	done := make(chan struct{}, 10)

	q := New(`test`, 0, func(ev event.Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	q.Resume()

	q.Put(event.New(`a`))
	q.Put(event.New(`b`))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal(`timed out waiting for delivery`)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf(`expected 2 delivered events, got %d`, len(got))
	}
	if got[0].Category != `a` || got[1].Category != `b` {
		t.Errorf(`expected in-order delivery, got %v, %v`, got[0].Category, got[1].Category)
	}
}

func TestQueuePausedBuffersThenDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []event.Event
	done := make(chan struct{}, 10)

	q := New(`test`, 0, func(ev event.Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})
	// starts paused by default
	q.Put(event.New(`a`))
	q.Put(event.New(`b`))
	q.Put(event.New(`c`))

	select {
	case <-done:
		t.Fatal(`callback fired while paused`)
	case <-time.After(50 * time.Millisecond):
	}

	q.Resume()

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal(`timed out waiting for delivery after resume`)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf(`expected 3 events, got %d`, len(got))
	}
	want := []string{`a`, `b`, `c`}
	for i, w := range want {
		if got[i].Category != w {
			t.Errorf(`position %d: got %q, want %q`, i, got[i].Category, w)
		}
	}
}

// TestQueueBoundedDropsOldest covers testable property 3: a bounded
// queue with cap N, after a paused interval with M>N puts, delivers
// exactly the last N items in order on resume.
func TestQueueBoundedDropsOldest(t *testing.T) {
	const capN = 3
	var mu sync.Mutex
	var got []event.Event
	done := make(chan struct{}, 10)

	q := New(`test`, capN, func(ev event.Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	for i := 0; i < 5; i++ {
		ev := event.New(string(rune('a' + i)))
		q.Put(ev)
	}

	q.Resume()

	for i := 0; i < capN; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal(`timed out waiting for delivery`)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != capN {
		t.Fatalf(`expected %d delivered events, got %d`, capN, len(got))
	}
	want := []string{`c`, `d`, `e`}
	for i, w := range want {
		if got[i].Category != w {
			t.Errorf(`position %d: got %q, want %q`, i, got[i].Category, w)
		}
	}
}

func TestQueueStopPreventsFurtherDelivery(t *testing.T) {
	delivered := make(chan struct{}, 10)
	q := New(`test`, 0, func(ev event.Event) error {
		delivered <- struct{}{}
		return nil
	})
	q.Resume()
	q.Stop()

	q.Put(event.New(`late`))

	select {
	case <-delivered:
		t.Fatal(`expected no delivery after Stop`)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueueCallbackErrorDoesNotStopDraining(t *testing.T) {
	var mu sync.Mutex
	var count int
	done := make(chan struct{}, 10)

	q := New(`test`, 0, func(ev event.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		done <- struct{}{}
		if ev.Category == `bad` {
			return errBoom
		}
		return nil
	})
	q.Resume()

	q.Put(event.New(`bad`))
	q.Put(event.New(`good`))

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal(`timed out`)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf(`expected both events processed despite error, got %d`, count)
	}
}

var errBoom = &testError{`boom`}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
