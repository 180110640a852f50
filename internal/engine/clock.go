package engine

import "sync/atomic"

// Revision is a logical timestamp. It advances only when an input changes;
// every cache entry records the revision at which its value last changed
// and the revision at which it was last confirmed current.
type Revision int64

const (
	// PersistedRevision is the revision stamped on entries installed from a
	// persisted cache.
	PersistedRevision Revision = 0

	// FirstRevision is the revision of a fresh engine.
	FirstRevision Revision = 1

	// cycleRevision marks a dependency edge recorded across a cycle. It is
	// below every real revision so the edge always reads as changed.
	cycleRevision Revision = -1
)

// Clock is the engine's revision counter.
//
// The counter is strictly monotonic. Only Engine.NewRevision advances it,
// either directly or through Input.Set when a value actually changes.
//
// Thread-safety: Clock uses atomic operations so Current can be read from
// any goroutine (for example by a metrics scrape), but the engine itself is
// single-owner and is the only caller of Next.
type Clock struct {
	rev atomic.Int64
}

// NewClock creates a clock positioned at FirstRevision.
func NewClock() *Clock {
	return NewClockAt(FirstRevision)
}

// NewClockAt creates a clock positioned at start.
func NewClockAt(start Revision) *Clock {
	c := &Clock{}
	c.rev.Store(int64(start))
	return c
}

// Next advances the clock and returns the new revision.
func (c *Clock) Next() Revision {
	return Revision(c.rev.Add(1))
}

// Current returns the current revision without advancing.
func (c *Clock) Current() Revision {
	return Revision(c.rev.Load())
}
