package engine

import (
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

type state uint8

const (
	stateIdle state = iota
	stateRunning
	stateVerifying
)

// node is the type-erased part of a cache entry.
//
// INVARIANTS:
//   - changedAt <= verifiedAt once hasValue is set
//   - deps are in the order the body first read them
//   - diags holds only what this entry's own body reported
type node struct {
	changedAt  Revision
	verifiedAt Revision
	deps       []edge
	diags      []diag.Diagnostic
	state      state
	hasValue   bool

	// cyclic marks a result produced while the entry took part in a cycle.
	// Such an entry is never verified, only re-executed.
	cyclic bool

	// input marks leaves set through Input.Set.
	input bool

	// loaded marks entries installed from a persisted cache that this
	// session has not re-established. For inputs that means not yet
	// confirmed by Set.
	loaded bool

	// epoch is the sweep epoch in which the entry was last touched.
	epoch uint64

	// verifyBase is the stack depth when verification of this entry began;
	// reentered is set when a body above that depth read the entry.
	verifyBase int
	reentered  bool

	// pending lists the entries that read this one while it was being
	// verified. redo marks such an entry: it holds a provisional sentinel
	// and runs again on its next read even within the same revision.
	pending []slot
	redo    bool
}

// edge records that the owning entry read callee when callee's changedAt
// was changedAt.
type edge struct {
	callee    slot
	changedAt Revision
}

// slot is a typed cache entry seen through its kind-independent operations.
type slot interface {
	base() *node
	kind() Kind

	// execute runs the body (queries) and stores the outcome.
	execute(e *Engine)

	// settle brings an input leaf up to date: a loaded input nobody
	// confirmed is dropped and counted as changed now.
	settle(e *Engine)

	describe() string
	// entity returns the entity the argument names, if it names one.
	entity() loc.ID
	mark(m *intern.Marker)
	writeArg(s *serial.Serializer)
	writeValue(s *serial.Serializer)
}

// table holds the entries of one kind in first-use order.
type table[A comparable] struct {
	entries map[A]slot
	order   []A
}

func newTable[A comparable]() *table[A] {
	return &table[A]{entries: make(map[A]slot)}
}

func (t *table[A]) get(a A) (slot, bool) {
	s, ok := t.entries[a]
	return s, ok
}

func (t *table[A]) put(a A, s slot) {
	if _, ok := t.entries[a]; !ok {
		t.order = append(t.order, a)
	}
	t.entries[a] = s
}

func (t *table[A]) slots() []slot {
	out := make([]slot, 0, len(t.order))
	for _, a := range t.order {
		out = append(out, t.entries[a])
	}
	return out
}

func (t *table[A]) size() int {
	return len(t.entries)
}

// retain drops every entry keep rejects and returns how many were dropped.
func (t *table[A]) retain(keep func(slot) bool) int {
	order := t.order[:0]
	dropped := 0
	for _, a := range t.order {
		if keep(t.entries[a]) {
			order = append(order, a)
			continue
		}
		delete(t.entries, a)
		dropped++
	}
	clear(t.order[len(order):])
	t.order = order
	return dropped
}

// anyTable is table[A] with A erased.
type anyTable interface {
	slots() []slot
	size() int
	retain(keep func(slot) bool) int
}

func markValue(m *intern.Marker, v any) {
	if mk, ok := v.(intern.Markable); ok {
		mk.Mark(m)
	}
}

func markDiags(m *intern.Marker, ds []diag.Diagnostic) {
	for _, d := range ds {
		d.Mark(m)
	}
}

// Entity is implemented by arguments that identify a source entity. A
// cycle diagnostic is addressed to the entity of the outermost query.
type Entity interface {
	EntityID() loc.ID
}

func entityOf(arg any) loc.ID {
	switch a := arg.(type) {
	case loc.ID:
		return a
	case Entity:
		return a.EntityID()
	}
	return loc.ID{}
}
