package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/trappedfunction/reactorkv/internal/apperr"
)

var segmentNamePattern = regexp.MustCompile(`^(\d{9})\.data$`)

// DefaultMaxSegmentSize triggers rotation when the active segment's
// write offset exceeds it (spec.md §4.13's "deliberate, specified
// extension").
const DefaultMaxSegmentSize = 64 * 1024 * 1024

// Engine implements spec.md §4.13: Open/Put/Get/Delete/Close over an
// append-only directory of segments, with append-then-index ordering
// for crash safety and replay-based recovery.
//
// The engine provides only per-key atomicity (spec.md §9): callers
// needing consistency across multiple keys must coordinate externally.
type Engine struct {
	dir string

	writeMu sync.Mutex
	active  *SegmentFile
	older   map[uint32]*SegmentFile

	index          *Index
	maxSegmentSize int64
}

// Open enumerates dir's segment files, replays them in id order to
// rebuild the Index, and returns a ready Engine (spec.md §4.13 step 1-3).
func Open(dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperr.KV(apperr.IoError, fmt.Errorf("mkdir %s: %w", dir, err))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.KV(apperr.IoError, err)
	}

	var ids []uint32
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := segmentNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.ParseUint(m[1], 10, 32)
		ids = append(ids, uint32(n))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	e := &Engine{
		dir:            dir,
		older:          make(map[uint32]*SegmentFile),
		index:          NewIndex(),
		maxSegmentSize: DefaultMaxSegmentSize,
	}

	if len(ids) == 0 {
		seg, err := OpenSegment(0, segmentPath(dir, 0))
		if err != nil {
			return nil, apperr.KV(apperr.IoError, err)
		}
		e.active = seg
		return e, nil
	}

	for i, id := range ids {
		seg, err := OpenSegment(id, segmentPath(dir, id))
		if err != nil {
			return nil, apperr.KV(apperr.IoError, err)
		}
		isActive := i == len(ids)-1
		if err := e.replaySegment(seg, isActive); err != nil {
			return nil, err
		}
		if isActive {
			e.active = seg
		} else {
			e.older[id] = seg
		}
	}

	return e, nil
}

func segmentPath(dir string, id uint32) string {
	return filepath.Join(dir, fmt.Sprintf("%09d.data", id))
}

// replaySegment iterates records from offset 0, updating the index.
// A corrupt non-active file aborts loading of that file (not a fatal
// error, and not reported); a corrupt active file truncates its write
// cursor to the last good offset (spec.md §4.13, §6).
func (e *Engine) replaySegment(seg *SegmentFile, isActive bool) error {
	var offset int64
	size := seg.WriteOffset()

	for offset < size {
		headerBytes, err := seg.ReadAt(offset, HeaderSize)
		if err != nil {
			break
		}
		header, err := DecodeHeader(headerBytes)
		if err != nil {
			break
		}
		if header.KeyLen == 0 {
			// end-of-file marker during replay (spec.md §6).
			break
		}
		bodyLen := int64(header.KeyLen) + int64(header.ValueLen)
		if offset+int64(HeaderSize)+bodyLen > size {
			break // torn tail: incomplete body
		}
		body, err := seg.ReadAt(offset+HeaderSize, int(bodyLen))
		if err != nil {
			break
		}
		key := body[:header.KeyLen]
		value := body[header.KeyLen:]
		if !VerifyCRC(header, key, value) {
			break
		}

		switch RecordType(header.Type) {
		case Normal:
			e.index.Put(string(key), Pos{SegmentID: seg.ID, Offset: offset})
		case Tombstone:
			e.index.Delete(string(key))
		}

		offset += int64(HeaderSize) + bodyLen
	}

	if offset < size {
		if isActive {
			if err := seg.SetWriteOffset(offset); err != nil {
				return apperr.KV(apperr.IoError, err)
			}
		}
		// non-active: loading simply stops at the last good record.
		// kv is deliberately logger-free (it has no dependency on the
		// logging package), so this warning-grade condition has no
		// sink to report through; callers needing visibility can
		// compare offset against seg.WriteOffset() themselves.
	}

	return nil
}

// Put rejects an empty key, appends a Normal record, then updates the
// index — in that order, so the index is never ahead of the log.
func (e *Engine) Put(key, value []byte) error {
	if len(key) == 0 {
		return apperr.KV(apperr.Invalid, nil)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.rotateIfNeededLocked(); err != nil {
		return err
	}

	rec := LogRecord{Type: Normal, Key: key, Value: value}
	encoded := Encode(rec)
	pos, err := e.active.Append(encoded)
	if err != nil {
		return apperr.KV(apperr.IoError, err)
	}
	e.index.Put(string(key), Pos{SegmentID: e.active.ID, Offset: pos})
	return nil
}

// Get requires no engine lock: it consults the Index, then reads
// positionally from the appropriate segment file.
func (e *Engine) Get(key []byte) ([]byte, error) {
	pos, ok := e.index.Get(string(key))
	if !ok {
		return nil, apperr.KV(apperr.KeyNotFound, nil)
	}

	seg := e.segmentFor(pos.SegmentID)
	if seg == nil {
		return nil, apperr.KV(apperr.DataCorrupted, fmt.Errorf("segment %d missing", pos.SegmentID))
	}

	headerBytes, err := seg.ReadAt(pos.Offset, HeaderSize)
	if err != nil {
		return nil, apperr.KV(apperr.DataCorrupted, err)
	}
	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, apperr.KV(apperr.DataCorrupted, err)
	}
	bodyLen := int(header.KeyLen) + int(header.ValueLen)
	body, err := seg.ReadAt(pos.Offset+HeaderSize, bodyLen)
	if err != nil {
		return nil, apperr.KV(apperr.DataCorrupted, err)
	}
	k := body[:header.KeyLen]
	v := body[header.KeyLen:]
	if !VerifyCRC(header, k, v) {
		return nil, apperr.KV(apperr.DataCorrupted, fmt.Errorf("crc mismatch"))
	}
	if RecordType(header.Type) == Tombstone {
		return nil, apperr.KV(apperr.KeyNotFound, nil)
	}
	return v, nil
}

// Delete rejects an empty key and an absent key, then appends a
// Tombstone record and removes the index entry.
func (e *Engine) Delete(key []byte) error {
	if len(key) == 0 {
		return apperr.KV(apperr.Invalid, nil)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if _, ok := e.index.Get(string(key)); !ok {
		return apperr.KV(apperr.KeyNotFound, nil)
	}

	if err := e.rotateIfNeededLocked(); err != nil {
		return err
	}

	rec := LogRecord{Type: Tombstone, Key: key, Value: nil}
	if _, err := e.active.Append(Encode(rec)); err != nil {
		return apperr.KV(apperr.IoError, err)
	}
	e.index.Delete(string(key))
	return nil
}

// Close syncs and closes the active segment and every archived one.
func (e *Engine) Close() error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.active.Sync(); err != nil {
		return err
	}
	if err := e.active.Close(); err != nil {
		return err
	}
	for _, seg := range e.older {
		if err := seg.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) segmentFor(id uint32) *SegmentFile {
	if e.active != nil && e.active.ID == id {
		return e.active
	}
	return e.older[id]
}

// rotateIfNeededLocked archives the active segment and opens id+1 as
// the new active one once the configured size threshold is exceeded.
// Callers hold writeMu.
func (e *Engine) rotateIfNeededLocked() error {
	if e.active.WriteOffset() <= e.maxSegmentSize {
		return nil
	}
	if err := e.active.Sync(); err != nil {
		return apperr.KV(apperr.IoError, err)
	}
	retiring := e.active
	e.older[retiring.ID] = retiring

	nextID := retiring.ID + 1
	seg, err := OpenSegment(nextID, segmentPath(e.dir, nextID))
	if err != nil {
		return apperr.KV(apperr.IoError, err)
	}
	e.active = seg
	return nil
}

// Index exposes the engine's index for diagnostics (cmd/kvtool).
func (e *Engine) Index() *Index { return e.index }

// Keys returns a snapshot of all live keys (cmd/kvtool migration support).
func (e *Engine) Keys() []string { return e.index.Keys() }

// MaxSegmentSize overrides the default rotation threshold.
func (e *Engine) MaxSegmentSize(n int64) { e.maxSegmentSize = n }
