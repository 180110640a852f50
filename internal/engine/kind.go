package engine

import (
	"github.com/roach88/incr/internal/serial"
)

// Kind is a query or input kind: an immutable descriptor identified by a
// unique name. Kinds hold no cached state; every engine keeps its own
// table per kind, so one kind value can serve any number of engines.
//
// Kinds are created with NewQuery and NewInput.
type Kind interface {
	// Name returns the kind's unique name.
	Name() string

	isInput() bool
	persistent() bool
	newTable() anyTable

	// readEntry decodes one persisted (argument, value) pair.
	readEntry(d *serial.Deserializer) (arg, value any)
	// readArg decodes one persisted argument.
	readArg(d *serial.Deserializer) any
	// install creates a loaded entry. It returns nil when the engine
	// already holds a computed entry for arg.
	install(e *Engine, arg, value any) slot
	// placeholder returns the entry for arg, creating an empty one.
	placeholder(e *Engine, arg any) slot
}

// Persistable reports whether k takes part in SaveCache and LoadCache.
func Persistable(k Kind) bool {
	return k.persistent()
}

// register binds k to e. Registering the same kind twice is a no-op; two
// different kinds with one name is a fatal fault.
func (e *Engine) register(k Kind) anyTable {
	if t, ok := e.tables[k]; ok {
		return t
	}
	name := k.Name()
	if other, ok := e.kinds[name]; ok && other != k {
		fatal(FatalKindConflict, name, "query kind %q registered twice", name)
	}
	e.kinds[name] = k
	e.kindOrder = append(e.kindOrder, name)
	t := k.newTable()
	e.tables[k] = t
	return t
}

// Register binds kinds to the engine ahead of first use. LoadCache can only
// decode entries of registered kinds.
func (e *Engine) Register(kinds ...Kind) {
	for _, k := range kinds {
		e.register(k)
	}
}

// Kinds returns the registered kinds in registration order.
func (e *Engine) Kinds() []Kind {
	out := make([]Kind, 0, len(e.kindOrder))
	for _, n := range e.kindOrder {
		out = append(out, e.kinds[n])
	}
	return out
}

func tableOf[A comparable](e *Engine, k Kind) *table[A] {
	return e.register(k).(*table[A])
}
