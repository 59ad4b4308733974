package reactor

import (
	"os"
	"testing"
)

func TestHandleCloseIsIdempotent(t *testing.T) {
	loop := newTestLoop(t)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer w.Close()

	conn := NewConnection(loop, int(r.Fd()), "test-peer", nil)
	conn.Established()

	closedCount := 0
	conn.SetCloseCallback(func(c *Connection) { closedCount++ })

	conn.handleClose()
	conn.handleClose()
	conn.handleClose()

	if closedCount != 1 {
		t.Fatalf("close callback fired %d times, want 1", closedCount)
	}
	if conn.State() != StateDisconnected {
		t.Fatalf("state = %v, want StateDisconnected", conn.State())
	}
}

func TestConnectionEstablishedTransitionsState(t *testing.T) {
	loop := newTestLoop(t)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	conn := NewConnection(loop, int(r.Fd()), "peer", nil)
	if conn.State() != StateConnecting {
		t.Fatalf("initial state = %v, want StateConnecting", conn.State())
	}
	conn.Established()
	if conn.State() != StateConnected {
		t.Fatalf("state after Established = %v, want StateConnected", conn.State())
	}
}
