// Package engine implements the incr query engine: memoized,
// dependency-tracked queries over versioned inputs.
//
// ARCHITECTURE:
//
// Inputs and Queries:
// An Input is a leaf kind set from outside (source text per file). A Query
// is a pure function from an argument to a result, memoized per engine.
// Query bodies read inputs and other queries through Get; every read is
// recorded on the active evaluation stack as a dependency edge of the entry
// being computed, together with the revision at which the dependency last
// changed.
//
// Revisions:
// The engine's Clock advances only when Input.Set stores a changed value
// (or NewRevision is called). Every entry carries changedAt, the revision
// its value last changed, and verifiedAt, the revision it was last
// confirmed current.
//
// Read Protocol:
//  1. Look up the entry for (kind, argument), creating an empty one.
//  2. If it was verified in the current revision, return the cached value.
//  3. Otherwise verify: refresh each recorded dependency in order. If none
//     changed past the recorded revision, stamp verifiedAt and return.
//  4. Otherwise execute the body with a fresh frame and merge the result
//     through the kind's update rule. changedAt moves only if the rule
//     reports a change, which is what stops invalidation from spreading
//     past a recomputation that produced an equal value (early cutoff).
//
// Cycles:
// Reading an entry that is already on the stack is a cycle. The outermost
// participant receives a QueryCycle diagnostic, every participant stores
// the kind's sentinel result, and the reads across the cycle are recorded
// with a revision below every real one so they always count as changed.
//
// Diagnostics:
// Bodies report diagnostics with Engine.Report. Each entry stores what its
// own body reported; cache hits replay them without re-running the body,
// and CollectDiagnostics gathers them transitively along dependency edges.
//
// Persistence:
// SaveCache and LoadCache write and read the current entries of Persist
// kinds in the cachefile format. Loaded entries are stamped revision 0 and
// must be re-established by verification before they are trusted.
//
// Thread-safety:
// An Engine is single-owner and synchronous. It uses no locks; overlapping
// use from two goroutines is detected at the outermost call and reported
// as a fatal fault. Kinds are immutable and can be shared by any number of
// engines.
package engine
