package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

// SessionGenerator produces session identifiers. A session id is written
// into every persisted cache so snapshots can be traced to the run that
// produced them.
type SessionGenerator interface {
	Generate() string
}

// Locator resolves entity IDs to source locations. Front ends provide one
// so that diagnostics addressed by ID can be printed with a position.
type Locator interface {
	Locate(id loc.ID) (loc.Location, bool)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(id loc.ID) (loc.Location, bool)

// Locate implements Locator.
func (f LocatorFunc) Locate(id loc.ID) (loc.Location, bool) {
	return f(id)
}

// Engine owns everything a compilation session caches: the revision clock,
// the interning table, one table of entries per kind, the active
// evaluation stack and the session-level diagnostics.
//
// Thread-safety model: an Engine is single-owner. All calls must come from
// one goroutine at a time. A top-level call that starts while another
// goroutine's top-level call is being claimed panics with
// FatalConcurrentUse; the check is best effort. Independent engines share
// nothing and may be used in parallel.
//
// INVARIANTS:
//   - the revision only advances through NewRevision
//   - every entry satisfies changedAt <= verifiedAt
//   - kind names are unique within an engine
type Engine struct {
	logger    *slog.Logger
	clock     *Clock
	interner  *intern.Table
	locator   Locator
	sessionID string

	kinds     map[string]Kind
	kindOrder []string
	tables    map[Kind]anyTable

	stack   []*frame
	depth   int
	busy    atomic.Bool
	session *diag.Bag

	gcPolicy  GCPolicy
	epoch     uint64
	lastSweep Revision
	roots     map[int]intern.Markable
	nextRoot  int

	stats    Stats
	executed map[string]int64
	closed   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithGCPolicy selects when unreferenced entries and names are swept.
// Defaults to GCExplicit.
func WithGCPolicy(p GCPolicy) Option {
	return func(e *Engine) {
		e.gcPolicy = p
	}
}

// WithQueries registers kinds up front, as Register does.
func WithQueries(kinds ...Kind) Option {
	return func(e *Engine) {
		e.Register(kinds...)
	}
}

// WithLocator sets the locator used to resolve entity IDs.
func WithLocator(l Locator) Option {
	return func(e *Engine) {
		e.locator = l
	}
}

// WithInterner makes the engine intern into an existing table.
func WithInterner(t *intern.Table) Option {
	return func(e *Engine) {
		e.interner = t
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(e *Engine) {
		e.sessionID = id
	}
}

// WithSessionGenerator draws the session id from gen.
func WithSessionGenerator(gen SessionGenerator) Option {
	return func(e *Engine) {
		e.sessionID = gen.Generate()
	}
}

// New creates an engine at FirstRevision with empty caches.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:    slog.Default(),
		clock:     NewClock(),
		interner:  intern.NewTable(),
		kinds:     make(map[string]Kind),
		tables:    make(map[Kind]anyTable),
		session:   diag.NewBag(),
		gcPolicy:  GCExplicit,
		lastSweep: FirstRevision,
		roots:     make(map[int]intern.Markable),
		executed:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sessionID == "" {
		e.sessionID = UUIDv7Generator{}.Generate()
	}
	return e
}

// Revision returns the current revision.
func (e *Engine) Revision() Revision {
	return e.clock.Current()
}

// NewRevision starts a new revision. Every cached entry becomes subject to
// verification on its next read.
//
// NewRevision panics with a *FatalError when called from inside a query.
func (e *Engine) NewRevision() Revision {
	e.checkOpen()
	if len(e.stack) > 0 {
		fatal(FatalInputDuringQuery, e.stack[len(e.stack)-1].slot.describe(),
			"new revision requested while a query is executing")
	}
	return e.clock.Next()
}

// SessionID returns the id recorded in caches saved by this engine.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Interner returns the engine's interning table.
func (e *Engine) Interner() *intern.Table {
	return e.interner
}

// Intern interns s in the engine's table.
func (e *Engine) Intern(s string) intern.Name {
	return e.interner.Intern(s)
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Locate resolves id through the configured Locator.
func (e *Engine) Locate(id loc.ID) (loc.Location, bool) {
	if e.locator == nil || id.IsEmpty() {
		return loc.Location{}, false
	}
	return e.locator.Locate(id)
}

// SetLocator replaces the locator. Front ends whose locator is itself built
// on queries create the engine first and attach the locator afterwards.
func (e *Engine) SetLocator(l Locator) {
	e.locator = l
}

// Executing reports whether a query body is running.
func (e *Engine) Executing() bool {
	return len(e.stack) > 0
}

// Close releases every cache entry, interned name and diagnostic. Any
// later use of the engine panics.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	entries := e.entryCount()
	e.tables = make(map[Kind]anyTable)
	e.kinds = make(map[string]Kind)
	e.kindOrder = nil
	e.stack = nil
	e.session.Reset()
	e.roots = make(map[int]intern.Markable)
	e.interner.Reset()
	e.closed = true
	e.logger.Info("engine closed", "session", e.sessionID, "entries", entries)
}

func (e *Engine) checkOpen() {
	if e.closed {
		fatal(FatalClosed, "", "engine used after Close")
	}
}

// enter marks the start of a public call. The outermost call claims the
// engine and runs a revision-triggered sweep if one is due.
func (e *Engine) enter() {
	e.checkOpen()
	if e.depth == 0 {
		if !e.busy.CompareAndSwap(false, true) {
			fatal(FatalConcurrentUse, "", "engine entered from two goroutines")
		}
		if e.gcPolicy == GCOnRevision && e.clock.Current() > e.lastSweep {
			e.collectGarbage()
		}
	}
	e.depth++
}

func (e *Engine) leave() {
	e.depth--
	if e.depth == 0 {
		e.busy.Store(false)
	}
}

func (e *Engine) entryCount() int {
	n := 0
	for _, t := range e.tables {
		n += t.size()
	}
	return n
}

func (e *Engine) checkEntry(s slot) {
	n := s.base()
	if n.changedAt > n.verifiedAt {
		fatal(FatalInvariant, s.describe(),
			"changed at revision %d after last verification at %d", n.changedAt, n.verifiedAt)
	}
}
