package reactor

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineMarker returns the calling goroutine's runtime id. Go
// offers no public API for this; EventLoop uses it purely as a thread
// affinity check (the Go analogue of comparing pthread_self() against
// the loop's owning thread id), never as a scheduling primitive.
func goroutineMarker() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
