package reactor

import (
	"golang.org/x/sys/unix"
)

// Buffer implements spec.md §4.1: a growable byte buffer with a cheap
// prepend reserve and single-reader/single-writer semantics. It is
// not safe for concurrent use; callers serialize access through the
// owner loop, the same way a Connection's buffers are only ever
// touched on their owner loop's thread.
type Buffer struct {
	buf    []byte
	reader int
	writer int
}

const (
	prependSize = 8
	initialSize = 1024
	scratchSize = 64 * 1024
)

// NewBuffer returns an empty Buffer with the standard prepend reserve.
func NewBuffer() *Buffer {
	return &Buffer{
		buf:    make([]byte, prependSize+initialSize),
		reader: prependSize,
		writer: prependSize,
	}
}

// ReadableBytes returns the number of bytes available to read.
func (b *Buffer) ReadableBytes() int { return b.writer - b.reader }

// WritableBytes returns the number of bytes available in the tail.
func (b *Buffer) WritableBytes() int { return len(b.buf) - b.writer }

// PrependableBytes returns the number of bytes before reader, including the reserve.
func (b *Buffer) PrependableBytes() int { return b.reader }

// Peek returns the readable span without consuming it. The returned
// slice aliases the buffer and is invalidated by the next mutation.
func (b *Buffer) Peek() []byte { return b.buf[b.reader:b.writer] }

// Retrieve consumes n bytes from the front of the readable span.
func (b *Buffer) Retrieve(n int) {
	if n >= b.ReadableBytes() {
		b.RetrieveAll()
		return
	}
	b.reader += n
}

// RetrieveUntil consumes bytes up to (not including) the given offset
// within the readable span, counted from the current reader position.
func (b *Buffer) RetrieveUntil(offset int) {
	b.Retrieve(offset)
}

// RetrieveAll consumes the entire readable span, resetting indices.
func (b *Buffer) RetrieveAll() {
	b.reader = prependSize
	b.writer = prependSize
}

// RetrieveAllAsString consumes and returns the entire readable span as
// a new string (copy, safe to retain).
func (b *Buffer) RetrieveAllAsString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// RetrieveAsString consumes and returns n bytes as a new string.
func (b *Buffer) RetrieveAsString(n int) string {
	if n > b.ReadableBytes() {
		n = b.ReadableBytes()
	}
	s := string(b.buf[b.reader : b.reader+n])
	b.Retrieve(n)
	return s
}

// Append appends data to the writable tail, growing or sliding the
// buffer left as needed to preserve the prepend reserve.
func (b *Buffer) Append(data []byte) {
	if b.WritableBytes() < len(data) {
		b.makeSpace(len(data))
	}
	b.writer += copy(b.buf[b.writer:], data)
}

// makeSpace ensures at least need bytes are writable, preserving the
// prepend reserve: slide existing data left if there is enough slack
// once the reserve is reclaimed, otherwise reallocate larger.
func (b *Buffer) makeSpace(need int) {
	if b.WritableBytes()+(b.PrependableBytes()-prependSize) >= need {
		readable := b.ReadableBytes()
		copy(b.buf[prependSize:], b.buf[b.reader:b.writer])
		b.reader = prependSize
		b.writer = prependSize + readable
		return
	}
	newCap := len(b.buf)
	for newCap-prependSize-b.ReadableBytes() < need {
		newCap *= 2
	}
	nb := make([]byte, newCap)
	readable := b.ReadableBytes()
	copy(nb[prependSize:], b.buf[b.reader:b.writer])
	b.buf = nb
	b.reader = prependSize
	b.writer = prependSize + readable
}

// ReadFromFD performs a single vectored read from fd into the
// writable tail plus a 64 KiB stack scratch region (spec.md §4.1): if
// the tail sufficed, only the tail is advanced; otherwise the tail is
// filled and the overflow is appended, bounding peak allocation to one
// extra scratch buffer per call regardless of kernel-delivered size.
func (b *Buffer) ReadFromFD(fd int) (int, error) {
	var scratch [scratchSize]byte

	tailWritable := b.WritableBytes()
	var iov []unix.Iovec
	if tailWritable > 0 {
		iov = append(iov, unix.Iovec{Base: &b.buf[b.writer], Len: uint64(tailWritable)})
	}
	iov = append(iov, unix.Iovec{Base: &scratch[0], Len: uint64(len(scratch))})

	total, err := unix.Readv(fd, iov)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}

	if total <= tailWritable {
		b.writer += total
		return total, nil
	}
	b.writer += tailWritable
	overflow := total - tailWritable
	b.Append(scratch[:overflow])
	return total, nil
}
