package kv

import (
	"fmt"
	"os"
)

// SegmentFile implements spec.md §4.11: an append-only file with a
// numeric id, positional reads, and a monotonic write offset. Older
// segments are immutable; exactly one segment is active (writable).
type SegmentFile struct {
	ID          uint32
	Path        string
	file        *os.File
	writeOffset int64
}

// OpenSegment opens or creates path (0644, read/write) and
// initialises the write offset to the file's current size.
func OpenSegment(id uint32, path string) (*SegmentFile, error) {
	// Note: O_APPEND is deliberately not used — Go's WriteAt rejects it
	// on append-mode files, and the segment already tracks its own
	// monotonic write offset for positional appends.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("kv: open segment %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("kv: stat segment %s: %w", path, err)
	}
	return &SegmentFile{ID: id, Path: path, file: f, writeOffset: info.Size()}, nil
}

// WriteOffset returns the logical write cursor.
func (s *SegmentFile) WriteOffset() int64 { return s.writeOffset }

// Append writes b fully at the current write offset, advancing it.
func (s *SegmentFile) Append(b []byte) (int64, error) {
	pos := s.writeOffset
	n, err := s.file.WriteAt(b, pos)
	if err != nil {
		return pos, fmt.Errorf("kv: append segment %d: %w", s.ID, err)
	}
	if n != len(b) {
		return pos, fmt.Errorf("kv: short append segment %d: wrote %d of %d", s.ID, n, len(b))
	}
	s.writeOffset += int64(n)
	return pos, nil
}

// ReadAt is a positional read sharing no file-pointer state with writers.
func (s *SegmentFile) ReadAt(offset int64, length int) ([]byte, error) {
	buf := make([]byte, length)
	n, err := s.file.ReadAt(buf, offset)
	if err != nil && n < length {
		return nil, fmt.Errorf("kv: read segment %d at %d: %w", s.ID, offset, err)
	}
	return buf, nil
}

// Sync forces a durable flush.
func (s *SegmentFile) Sync() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("kv: sync segment %d: %w", s.ID, err)
	}
	return nil
}

// SetWriteOffset truncates the logical write cursor (recovery's torn-
// tail discard); the physical file is truncated too so later appends
// do not leave stale bytes between the new cursor and the old EOF.
func (s *SegmentFile) SetWriteOffset(n int64) error {
	if err := s.file.Truncate(n); err != nil {
		return fmt.Errorf("kv: truncate segment %d: %w", s.ID, err)
	}
	s.writeOffset = n
	return nil
}

// Close closes the underlying file.
func (s *SegmentFile) Close() error {
	return s.file.Close()
}
