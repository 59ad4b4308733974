package reactor

import (
	"os"
	"testing"
)

func TestChannelInterestMaskReflectsEnableDisable(t *testing.T) {
	loop := newTestLoop(t)
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	ch := NewChannel(loop, int(r.Fd()))
	if ch.IsReading() || ch.IsWriting() {
		t.Fatal("new channel should have no interest")
	}

	ch.EnableReading()
	if !ch.IsReading() {
		t.Fatal("expected reading interest after EnableReading")
	}

	ch.EnableWriting()
	if !ch.IsWriting() {
		t.Fatal("expected writing interest after EnableWriting")
	}

	ch.DisableAll()
	if ch.IsReading() || ch.IsWriting() {
		t.Fatal("expected no interest after DisableAll")
	}
}

func TestChannelHandleEventDispatchOrder(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	var order []string
	ch.SetCloseCallback(func() { order = append(order, "close") })
	ch.SetErrorCallback(func() { order = append(order, "error") })
	ch.SetReadCallback(func() { order = append(order, "read") })
	ch.SetWriteCallback(func() { order = append(order, "write") })

	ch.setReceivedEvents(EventHangup)
	ch.HandleEvent()
	if len(order) != 1 || order[0] != "close" {
		t.Fatalf("hangup-without-readable: got %v, want [close]", order)
	}

	order = nil
	ch.setReceivedEvents(EventError | EventReadable | EventWritable)
	ch.HandleEvent()
	want := []string{"error", "read", "write"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestChannelTieDropsEventAfterUpgradeFails(t *testing.T) {
	loop := newTestLoop(t)
	ch := NewChannel(loop, 0)

	called := false
	ch.SetReadCallback(func() { called = true })
	ch.setReceivedEvents(EventReadable)
	ch.Tie(func() (any, bool) { return nil, false })

	ch.HandleEvent()
	if called {
		t.Fatal("expected event to be dropped when tie upgrade fails")
	}
}
