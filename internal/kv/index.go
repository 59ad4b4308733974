package kv

import "sync"

// Pos locates a record: which segment, and its byte offset within it.
type Pos struct {
	SegmentID uint32
	Offset    int64
}

// Index implements spec.md §4.12: a many-reader/single-writer map of
// key to its most recent record position. Present iff the latest
// record for the key is Normal.
type Index struct {
	mu sync.RWMutex
	m  map[string]Pos
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{m: make(map[string]Pos)}
}

// Put records key's position, overwriting any prior entry.
func (idx *Index) Put(key string, pos Pos) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.m[key] = pos
}

// Get returns key's position and whether it is present.
func (idx *Index) Get(key string) (Pos, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	pos, ok := idx.m[key]
	return pos, ok
}

// Delete removes key, reporting whether it was present.
func (idx *Index) Delete(key string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.m[key]
	delete(idx.m, key)
	return ok
}

// Size returns the number of live keys.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.m)
}

// Keys returns a snapshot of all live keys, for diagnostics and
// migration tooling (cmd/kvtool) rather than the hot Put/Get/Delete path.
func (idx *Index) Keys() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	keys := make([]string, 0, len(idx.m))
	for k := range idx.m {
		keys = append(keys, k)
	}
	return keys
}
