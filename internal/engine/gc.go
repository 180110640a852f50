package engine

import (
	"fmt"

	"github.com/roach88/incr/internal/intern"
)

// GCPolicy selects when the engine sweeps.
type GCPolicy uint8

const (
	// GCExplicit sweeps only when Collect is called.
	GCExplicit GCPolicy = iota
	// GCOnRevision sweeps at the first top-level read after the revision
	// advanced.
	GCOnRevision
)

// String returns the policy name used in configuration.
func (p GCPolicy) String() string {
	switch p {
	case GCExplicit:
		return "explicit"
	case GCOnRevision:
		return "revision"
	default:
		return fmt.Sprintf("GCPolicy(%d)", uint8(p))
	}
}

// ParseGCPolicy parses a policy name.
func ParseGCPolicy(s string) (GCPolicy, error) {
	switch s {
	case "", "explicit":
		return GCExplicit, nil
	case "revision":
		return GCOnRevision, nil
	default:
		return GCExplicit, fmt.Errorf("unknown gc policy %q", s)
	}
}

// GCResult reports what one sweep freed.
type GCResult struct {
	Entries int
	Names   int
}

// AddGCRoot keeps every name v marks alive across sweeps, for values held
// outside the engine. The returned function removes the root.
func (e *Engine) AddGCRoot(v intern.Markable) (remove func()) {
	id := e.nextRoot
	e.nextRoot++
	e.roots[id] = v
	return func() { delete(e.roots, id) }
}

// Collect sweeps the engine. Entries not read since the previous sweep are
// dropped unless a surviving entry depends on them; inputs holding a value
// always survive. Then every interned name not marked by a
// surviving entry, a GC root or a session diagnostic is freed.
//
// Collect panics with a *FatalError when called from inside a query.
func (e *Engine) Collect() GCResult {
	e.checkOpen()
	if len(e.stack) > 0 {
		fatal(FatalInvariant, e.stack[len(e.stack)-1].slot.describe(),
			"garbage collection requested while a query is executing")
	}
	return e.collectGarbage()
}

func (e *Engine) collectGarbage() GCResult {
	live := make(map[*node]bool)

	var keep func(s slot)
	keep = func(s slot) {
		n := s.base()
		if live[n] {
			return
		}
		live[n] = true
		for _, d := range n.deps {
			keep(d.callee)
		}
	}
	for _, name := range e.kindOrder {
		for _, s := range e.tables[e.kinds[name]].slots() {
			n := s.base()
			if n.epoch == e.epoch || (n.input && n.hasValue) {
				keep(s)
			}
		}
	}

	var res GCResult
	for _, name := range e.kindOrder {
		res.Entries += e.tables[e.kinds[name]].retain(func(s slot) bool {
			return live[s.base()]
		})
	}

	res.Names = e.interner.Collect(func(m *intern.Marker) {
		for _, t := range e.tables {
			for _, s := range t.slots() {
				s.mark(m)
			}
		}
		for _, r := range e.roots {
			r.Mark(m)
		}
		for _, d := range e.session.All() {
			d.Mark(m)
		}
	})

	e.epoch++
	e.lastSweep = e.clock.Current()
	e.stats.Sweeps++
	e.stats.EntriesCollected += int64(res.Entries)
	e.stats.NamesCollected += int64(res.Names)
	e.logger.Info("gc sweep",
		"revision", e.lastSweep,
		"epoch", e.epoch,
		"entries_dropped", res.Entries,
		"names_freed", res.Names,
	)
	return res
}
