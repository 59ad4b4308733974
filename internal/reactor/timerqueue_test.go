package reactor

import (
	"testing"
	"time"
)

func newTestLoop(t *testing.T) *EventLoop {
	t.Helper()
	loop, err := NewEventLoop()
	if err != nil {
		t.Fatalf("NewEventLoop: %v", err)
	}
	return loop
}

func TestTimerQueueFiresInOrder(t *testing.T) {
	loop := newTestLoop(t)
	q := NewTimerQueue(loop)

	var fired []int
	base := time.Now()
	q.AddTimer(func() { fired = append(fired, 2) }, base.Add(2*time.Millisecond))
	q.AddTimer(func() { fired = append(fired, 1) }, base.Add(1*time.Millisecond))
	q.AddTimer(func() { fired = append(fired, 3) }, base.Add(3*time.Millisecond))

	q.ProcessExpired(base.Add(10 * time.Millisecond))

	if len(fired) != 3 || fired[0] != 1 || fired[1] != 2 || fired[2] != 3 {
		t.Fatalf("fired = %v, want [1 2 3]", fired)
	}
}

func TestTimerQueueCancelIsIdempotent(t *testing.T) {
	loop := newTestLoop(t)
	q := NewTimerQueue(loop)

	ran := false
	id := q.AddTimer(func() { ran = true }, time.Now())

	q.Cancel(id)
	q.Cancel(id) // second cancel must be a safe no-op

	q.ProcessExpired(time.Now().Add(time.Millisecond))
	if ran {
		t.Fatal("cancelled timer fired")
	}
}

func TestTimerQueueCancelAfterFireIsNoop(t *testing.T) {
	loop := newTestLoop(t)
	q := NewTimerQueue(loop)

	id := q.AddTimer(func() {}, time.Now())
	q.ProcessExpired(time.Now().Add(time.Millisecond))

	// Cancelling an id whose timer already fired must not panic or
	// affect anything else.
	q.Cancel(id)
}

func TestTimerQueueEarliestExpirationSkipsCancelled(t *testing.T) {
	loop := newTestLoop(t)
	q := NewTimerQueue(loop)

	base := time.Now()
	first := q.AddTimer(func() {}, base.Add(1*time.Millisecond))
	q.AddTimer(func() {}, base.Add(5*time.Millisecond))

	q.Cancel(first)

	when, ok := q.EarliestExpiration()
	if !ok {
		t.Fatal("expected a pending timer")
	}
	if !when.Equal(base.Add(5 * time.Millisecond)) {
		t.Fatalf("earliest = %v, want base+5ms", when)
	}
}
