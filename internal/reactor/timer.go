package reactor

import "time"

// TimerID is a stable opaque handle (spec.md §9 design (a)): presence
// in the TimerQueue's liveness map, not the timer object's lifetime,
// determines validity. This makes cancel-after-fire and
// fire-after-cancel both safe no-ops.
type TimerID uint64

type timer struct {
	id       TimerID
	when     time.Time
	callback func()
}
