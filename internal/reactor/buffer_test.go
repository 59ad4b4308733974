package reactor

import (
	"os"
	"testing"
)

func TestBufferInvariants(t *testing.T) {
	b := NewBuffer()
	if b.PrependableBytes() != prependSize {
		t.Fatalf("PrependableBytes = %d, want %d", b.PrependableBytes(), prependSize)
	}
	b.Append([]byte("hello"))
	if b.ReadableBytes() != 5 {
		t.Fatalf("ReadableBytes = %d, want 5", b.ReadableBytes())
	}
	if string(b.Peek()) != "hello" {
		t.Fatalf("Peek = %q, want hello", b.Peek())
	}
	b.Retrieve(2)
	if string(b.Peek()) != "llo" {
		t.Fatalf("Peek after Retrieve(2) = %q, want llo", b.Peek())
	}
}

func TestBufferAppendGrows(t *testing.T) {
	b := NewBuffer()
	big := make([]byte, 4096)
	for i := range big {
		big[i] = byte(i)
	}
	b.Append(big)
	if b.ReadableBytes() != len(big) {
		t.Fatalf("ReadableBytes = %d, want %d", b.ReadableBytes(), len(big))
	}
	got := b.RetrieveAllAsString()
	for i := 0; i < len(big); i++ {
		if got[i] != big[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], big[i])
		}
	}
}

func TestReadFromFDRoundTrips(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer r.Close()

	payload := make([]byte, 128*1024) // exceeds the 64 KiB scratch region
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	done := make(chan struct{})
	go func() {
		w.Write(payload)
		w.Close()
		close(done)
	}()

	b := NewBuffer()
	for b.ReadableBytes() < len(payload) {
		n, err := b.ReadFromFD(int(r.Fd()))
		if err != nil {
			t.Fatalf("ReadFromFD: %v", err)
		}
		if n == 0 {
			break
		}
	}
	<-done

	got := b.RetrieveAllAsString()
	if len(got) != len(payload) {
		t.Fatalf("round-trip length = %d, want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}
