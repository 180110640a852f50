package engine

import (
	"strings"

	"github.com/roach88/incr/internal/diag"
)

// frame is one entry of the active evaluation stack: a body that is
// running, with the dependencies and diagnostics it has produced so far.
type frame struct {
	slot  slot
	index int
	deps  []edge
	seen  map[slot]int
	diags []diag.Diagnostic

	// cycle marks a frame that took part in a cycle; its result is
	// replaced by the sentinel.
	cycle         bool
	cycleReported bool
	closed        bool
}

func (e *Engine) push(s slot) *frame {
	f := &frame{slot: s, index: len(e.stack)}
	s.base().state = stateRunning
	e.stack = append(e.stack, f)
	return f
}

func (e *Engine) pop(f *frame) {
	e.stack[f.index] = nil
	e.stack = e.stack[:f.index]
	f.slot.base().state = stateIdle
	f.closed = true
}

// abandon unwinds f if its body panicked. The entry keeps whatever it held
// before the attempt.
func (e *Engine) abandon(f *frame) {
	if f.closed {
		return
	}
	for i := len(e.stack) - 1; i >= f.index; i-- {
		e.stack[i].slot.base().state = stateIdle
		e.stack[i].closed = true
		e.stack[i] = nil
	}
	e.stack = e.stack[:f.index]
}

// recordRead adds an edge from the running body to s. Repeated reads of
// one entry keep the first position; a cycle read overrides the revision.
func (e *Engine) recordRead(s slot, rev Revision) {
	if len(e.stack) == 0 {
		return
	}
	f := e.stack[len(e.stack)-1]
	if f.seen == nil {
		f.seen = make(map[slot]int)
	}
	if i, ok := f.seen[s]; ok {
		if rev == cycleRevision {
			f.deps[i].changedAt = cycleRevision
		}
		return
	}
	f.seen[s] = len(f.deps)
	f.deps = append(f.deps, edge{callee: s, changedAt: rev})
}

// cycle handles a read of s while s is already running. Every frame from
// s's own up to the top takes part; the cycle diagnostic goes to the
// outermost of them, which is s.
func (e *Engine) cycle(s slot) {
	start := len(e.stack) - 1
	for start >= 0 && e.stack[start].slot != s {
		start--
	}
	if start < 0 {
		fatal(FatalInvariant, s.describe(), "running entry missing from evaluation stack")
	}
	e.markCycle(start, s)
}

// reenter handles a read of s while s is being verified. s's verification
// fails and s executes next. The frames pushed since verification began
// store a provisional sentinel and are queued on s; they run again when
// next read, and the cycle is then reported by s's own execution.
func (e *Engine) reenter(s slot) {
	n := s.base()
	n.reentered = true
	for _, f := range e.stack[min(n.verifyBase, len(e.stack)):] {
		f.cycle = true
		n.pending = append(n.pending, f.slot)
	}
	e.logger.Debug("query re-entered during verification", "query", s.describe())
}

func (e *Engine) markCycle(start int, tail slot) {
	path := make([]string, 0, len(e.stack)-start+1)
	for _, f := range e.stack[start:] {
		f.cycle = true
		path = append(path, f.slot.describe())
	}
	path = append(path, tail.describe())

	outer := e.stack[start]
	if !outer.cycleReported {
		outer.cycleReported = true
		outer.diags = append(outer.diags, diag.Cycle(outer.slot.entity(), path))
	}
	e.stats.Cycles++
	e.logger.Debug("query cycle detected", "path", strings.Join(path, " -> "))
}
