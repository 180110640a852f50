package engine

import (
	"fmt"

	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

// Input is a leaf kind whose values are set from outside the engine, such
// as source text keyed by file. Queries read inputs with Get; only Set
// moves the revision clock.
type Input[K comparable, V any] struct {
	name   string
	update func(old *V, new V) bool
	keys   *serial.Codec[K]
	values *serial.Codec[V]
}

// NewInput creates an input kind using DefaultUpdate to detect changes.
//
// Collect keeps the names a key or value holds only if the key or value
// implements intern.Markable; intern.Name does. Names nested in other
// types, such as a []intern.Name or a struct field, are swept unless the
// type implements Mark.
func NewInput[K comparable, V any](name string) *Input[K, V] {
	return &Input[K, V]{name: name, update: DefaultUpdate[V]()}
}

// WithUpdate sets the rule deciding whether Set changed the stored value.
func (in *Input[K, V]) WithUpdate(update func(old *V, new V) bool) *Input[K, V] {
	in.update = update
	return in
}

// Persist marks the kind as saved by SaveCache, using the given codecs.
func (in *Input[K, V]) Persist(keys serial.Codec[K], values serial.Codec[V]) *Input[K, V] {
	in.keys = &keys
	in.values = &values
	return in
}

// Name implements Kind.
func (in *Input[K, V]) Name() string {
	return in.name
}

func (in *Input[K, V]) isInput() bool    { return true }
func (in *Input[K, V]) persistent() bool { return in.keys != nil }

func (in *Input[K, V]) newTable() anyTable {
	return newTable[K]()
}

// Set stores v under k. A new revision starts only when the update rule
// reports a change; setting an equal value is free. Set on a value loaded
// from a persisted cache confirms it, keeping entries that depend on it
// reusable.
//
// Set panics with a *FatalError when called from inside a query body.
func (in *Input[K, V]) Set(e *Engine, k K, v V) Revision {
	e.checkOpen()
	if len(e.stack) > 0 {
		fatal(FatalInputDuringQuery, e.stack[len(e.stack)-1].slot.describe(),
			"input %s set while a query is executing", in.name)
	}
	c := in.entry(e, k)

	changed := true
	if c.hasValue {
		changed = in.update(&c.value, v)
	} else {
		c.value = v
		c.hasValue = true
	}
	c.loaded = false
	c.epoch = e.epoch
	if !changed {
		return e.Revision()
	}
	rev := e.NewRevision()
	c.changedAt = rev
	c.verifiedAt = rev
	e.logger.Debug("input changed", "input", c.describe(), "revision", rev)
	return rev
}

// Get returns the value stored under k, or the zero value if it was never
// set. Called from inside a query body, it records a dependency.
func (in *Input[K, V]) Get(e *Engine, k K) V {
	v, _ := in.Lookup(e, k)
	return v
}

// Lookup is Get that also reports whether a value is set.
func (in *Input[K, V]) Lookup(e *Engine, k K) (V, bool) {
	e.enter()
	defer e.leave()

	c := in.entry(e, k)
	c.epoch = e.epoch
	c.settle(e)
	e.recordRead(c, c.changedAt)
	return c.value, c.hasValue
}

// Keys returns every key with a value, in first-set order.
func (in *Input[K, V]) Keys(e *Engine) []K {
	e.checkOpen()
	t := tableOf[K](e, in)
	out := make([]K, 0, t.size())
	for _, k := range t.order {
		if c := t.entries[k].(*cell[K, V]); c.hasValue && !c.loaded {
			out = append(out, k)
		}
	}
	return out
}

func (in *Input[K, V]) entry(e *Engine, k K) *cell[K, V] {
	t := tableOf[K](e, in)
	if s, ok := t.get(k); ok {
		return s.(*cell[K, V])
	}
	rev := e.Revision()
	c := &cell[K, V]{in: in, key: k}
	c.input = true
	c.changedAt = rev
	c.verifiedAt = rev
	t.put(k, c)
	return c
}

func (in *Input[K, V]) readEntry(d *serial.Deserializer) (any, any) {
	k := in.keys.Read(d)
	return k, in.values.Read(d)
}

func (in *Input[K, V]) readArg(d *serial.Deserializer) any {
	return in.keys.Read(d)
}

// install skips keys this session already holds, including keys it read
// while unset: entries that saw them unset recorded the cell's current
// revision, and a value stamped with an older one would pass verification.
func (in *Input[K, V]) install(e *Engine, arg, value any) slot {
	t := tableOf[K](e, in)
	if s, ok := t.get(arg.(K)); ok {
		if n := s.base(); n.hasValue || !n.loaded {
			return nil
		}
	}
	c := in.entry(e, arg.(K))
	c.value = value.(V)
	c.hasValue = true
	c.loaded = true
	c.epoch = e.epoch
	c.changedAt = PersistedRevision
	c.verifiedAt = PersistedRevision
	return c
}

func (in *Input[K, V]) placeholder(e *Engine, arg any) slot {
	c := in.entry(e, arg.(K))
	if !c.hasValue {
		c.loaded = true
	}
	return c
}

// cell is an input cache entry.
type cell[K comparable, V any] struct {
	node
	in    *Input[K, V]
	key   K
	value V
}

func (c *cell[K, V]) base() *node     { return &c.node }
func (c *cell[K, V]) kind() Kind      { return c.in }
func (c *cell[K, V]) execute(*Engine) {}

func (c *cell[K, V]) describe() string {
	return fmt.Sprintf("%s(%v)", c.in.name, c.key)
}

// settle drops a persisted value nobody confirmed in this session. The
// input then reads as unset and as changed at the current revision, so
// every entry that depended on it recomputes.
func (c *cell[K, V]) settle(e *Engine) {
	if !c.loaded {
		return
	}
	var zero V
	c.value = zero
	c.hasValue = false
	c.loaded = false
	c.changedAt = e.Revision()
	c.verifiedAt = c.changedAt
}

func (c *cell[K, V]) entity() loc.ID {
	return entityOf(c.key)
}

func (c *cell[K, V]) mark(m *intern.Marker) {
	markValue(m, c.key)
	if c.hasValue {
		markValue(m, c.value)
	}
}

func (c *cell[K, V]) writeArg(s *serial.Serializer) {
	c.in.keys.Write(s, c.key)
}

func (c *cell[K, V]) writeValue(s *serial.Serializer) {
	c.in.values.Write(s, c.value)
}
