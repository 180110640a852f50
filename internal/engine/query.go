package engine

import (
	"fmt"
	"reflect"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

// Query is a memoized, dependency-tracked function from A to R.
//
// A query body reads inputs and other queries through their Get methods;
// every such read is recorded as a dependency of the entry being computed.
// The body reports diagnostics through Engine.Report. It must be a pure
// function of what it reads.
//
// Configure a Query with its builder methods before first use:
//
//	var typeOf = engine.NewQuery("typeOf", computeType).
//		WithSentinel(func(intern.Name) Type { return ErrorType }).
//		Persist(serial.Name, TypeCodec)
type Query[A comparable, R any] struct {
	name     string
	body     func(e *Engine, arg A) R
	update   func(old *R, new R) bool
	sentinel func(arg A) R
	args     *serial.Codec[A]
	results  *serial.Codec[R]
}

// NewQuery creates a query kind. The default update rule treats equal
// results as unchanged: R's Equal(R) bool method when it has one, deep
// equality otherwise.
//
// Collect keeps the names an argument or result holds only if it
// implements intern.Markable. A result carrying names in a slice or a
// struct field must implement Mark or those names are swept.
func NewQuery[A comparable, R any](name string, body func(e *Engine, arg A) R) *Query[A, R] {
	return &Query[A, R]{
		name:   name,
		body:   body,
		update: DefaultUpdate[R](),
	}
}

// WithUpdate sets the rule that merges a recomputed result into the cached
// one. It reports whether the cached value changed; returning false lets
// dependents skip recomputation.
func (q *Query[A, R]) WithUpdate(update func(old *R, new R) bool) *Query[A, R] {
	q.update = update
	return q
}

// WithSentinel sets the result returned for a query caught in a cycle.
// Without it the zero value of R is used.
func (q *Query[A, R]) WithSentinel(sentinel func(arg A) R) *Query[A, R] {
	q.sentinel = sentinel
	return q
}

// Persist marks the kind as saved by SaveCache, using the given codecs.
func (q *Query[A, R]) Persist(args serial.Codec[A], results serial.Codec[R]) *Query[A, R] {
	q.args = &args
	q.results = &results
	return q
}

// Name implements Kind.
func (q *Query[A, R]) Name() string {
	return q.name
}

func (q *Query[A, R]) isInput() bool    { return false }
func (q *Query[A, R]) persistent() bool { return q.args != nil }

func (q *Query[A, R]) newTable() anyTable {
	return newTable[A]()
}

func (q *Query[A, R]) sentinelFor(arg A) R {
	if q.sentinel != nil {
		return q.sentinel(arg)
	}
	var zero R
	return zero
}

// Get returns the result for arg, computing it if no current entry exists.
// Called from inside another query body, it records a dependency.
func (q *Query[A, R]) Get(e *Engine, arg A) R {
	r, _ := q.fetch(e, arg)
	return r
}

// GetWithDiagnostics returns the result for arg together with the
// diagnostics its own body reported. On a cache hit these are the stored
// diagnostics; the body is not re-run. Diagnostics reported by the queries
// it called are not included; CollectDiagnostics returns those as well.
func (q *Query[A, R]) GetWithDiagnostics(e *Engine, arg A) (R, []diag.Diagnostic) {
	r, m := q.fetch(e, arg)
	if m == nil {
		return r, nil
	}
	return r, cloneDiags(m.diags)
}

// CollectDiagnostics returns the diagnostics of arg's entry and of every
// entry it transitively depends on: depth-first in recorded dependency
// order, each entry's own diagnostics before those of its dependencies,
// duplicates removed.
func (q *Query[A, R]) CollectDiagnostics(e *Engine, arg A) []diag.Diagnostic {
	_, m := q.fetch(e, arg)
	if m == nil {
		return nil
	}
	return e.collect(m)
}

// Peek returns the cached result for arg without computing, verifying or
// recording a dependency. The second result is false when nothing is
// cached.
func (q *Query[A, R]) Peek(e *Engine, arg A) (R, bool) {
	e.checkOpen()
	if s, ok := tableOf[A](e, q).get(arg); ok {
		m := s.(*memo[A, R])
		if m.hasValue {
			return m.value, true
		}
	}
	var zero R
	return zero, false
}

func (q *Query[A, R]) fetch(e *Engine, arg A) (R, *memo[A, R]) {
	e.enter()
	defer e.leave()

	m := q.entry(e, arg)
	if !e.refresh(m) {
		e.recordRead(m, cycleRevision)
		return q.sentinelFor(arg), nil
	}
	e.recordRead(m, m.changedAt)
	return m.value, m
}

func (q *Query[A, R]) entry(e *Engine, arg A) *memo[A, R] {
	t := tableOf[A](e, q)
	if s, ok := t.get(arg); ok {
		return s.(*memo[A, R])
	}
	m := &memo[A, R]{q: q, arg: arg}
	t.put(arg, m)
	return m
}

func (q *Query[A, R]) readEntry(d *serial.Deserializer) (any, any) {
	arg := q.args.Read(d)
	return arg, q.results.Read(d)
}

func (q *Query[A, R]) readArg(d *serial.Deserializer) any {
	return q.args.Read(d)
}

func (q *Query[A, R]) install(e *Engine, arg, value any) slot {
	m := q.entry(e, arg.(A))
	if m.hasValue {
		return nil
	}
	m.value = value.(R)
	m.hasValue = true
	m.loaded = true
	m.epoch = e.epoch
	m.changedAt = PersistedRevision
	m.verifiedAt = PersistedRevision
	return m
}

func (q *Query[A, R]) placeholder(e *Engine, arg any) slot {
	return q.entry(e, arg.(A))
}

// memo is a query cache entry.
type memo[A comparable, R any] struct {
	node
	q     *Query[A, R]
	arg   A
	value R
}

func (m *memo[A, R]) base() *node { return &m.node }
func (m *memo[A, R]) kind() Kind  { return m.q }
func (m *memo[A, R]) settle(*Engine) {}

func (m *memo[A, R]) describe() string {
	return fmt.Sprintf("%s(%v)", m.q.name, m.arg)
}

func (m *memo[A, R]) entity() loc.ID {
	return entityOf(m.arg)
}

func (m *memo[A, R]) mark(mk *intern.Marker) {
	markValue(mk, m.arg)
	if m.hasValue {
		markValue(mk, m.value)
	}
	markDiags(mk, m.diags)
}

func (m *memo[A, R]) writeArg(s *serial.Serializer) {
	m.q.args.Write(s, m.arg)
}

func (m *memo[A, R]) writeValue(s *serial.Serializer) {
	m.q.results.Write(s, m.value)
}

// execute runs the body with a fresh frame and merges the outcome.
func (m *memo[A, R]) execute(e *Engine) {
	n := &m.node
	rev := e.clock.Current()

	f := e.push(m)
	defer e.abandon(f)
	r := m.q.body(e, m.arg)
	e.pop(f)

	n.deps = f.deps
	n.diags = f.diags
	changed := true
	switch {
	case f.cycle:
		m.value = m.q.sentinelFor(m.arg)
		n.cyclic = true
	case !n.hasValue || n.cyclic:
		m.value = r
		n.cyclic = false
	default:
		changed = m.q.update(&m.value, r)
	}
	n.hasValue = true
	n.loaded = false
	if changed {
		n.changedAt = rev
	}
	n.verifiedAt = rev
	e.stats.Executions++
	e.executed[m.q.name]++
	e.checkEntry(m)

	e.logger.Debug("query executed",
		"query", m.describe(),
		"revision", rev,
		"changed", changed,
		"deps", len(n.deps),
		"diagnostics", len(n.diags),
	)
}

type equaler[R any] interface {
	Equal(R) bool
}

// DefaultUpdate returns the update rule used when none is configured: if R
// has an Equal(R) bool method it decides, otherwise reflect.DeepEqual. A
// changed value replaces the old one.
func DefaultUpdate[R any]() func(old *R, new R) bool {
	t := reflect.TypeFor[R]()
	if t.Implements(reflect.TypeFor[equaler[R]]()) {
		return Replace(func(a, b R) bool {
			return any(a).(equaler[R]).Equal(b)
		})
	}
	return Replace(func(a, b R) bool {
		return reflect.DeepEqual(a, b)
	})
}

// Replace builds an update rule that swaps in the new value whenever equal
// reports a difference.
func Replace[R any](equal func(a, b R) bool) func(old *R, new R) bool {
	return func(old *R, new R) bool {
		if equal(*old, new) {
			return false
		}
		*old = new
		return true
	}
}

// Always is an update rule that treats every recomputation as a change.
func Always[R any](old *R, new R) bool {
	*old = new
	return true
}

func cloneDiags(ds []diag.Diagnostic) []diag.Diagnostic {
	if len(ds) == 0 {
		return nil
	}
	out := make([]diag.Diagnostic, len(ds))
	copy(out, ds)
	return out
}
