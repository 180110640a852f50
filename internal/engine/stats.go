package engine

// Stats counts engine activity since creation.
type Stats struct {
	// Hits counts reads answered without running a body: entries already
	// verified in this revision or confirmed by verification.
	Hits int64
	// Executions counts body runs.
	Executions int64
	// Verifications counts dependency walks started by a stale read.
	Verifications int64
	// Cycles counts detected query cycles.
	Cycles int64
	// Sweeps counts garbage-collection passes.
	Sweeps int64
	// EntriesCollected and NamesCollected total what sweeps freed.
	EntriesCollected int64
	NamesCollected   int64
	// EntriesLoaded counts entries installed from persisted caches.
	EntriesLoaded int64
}

// Snapshot is a point-in-time view of an engine for reporting.
type Snapshot struct {
	Stats
	Revision Revision
	Entries  int
	Names    int
	Kinds    map[string]int
	// Executed counts body runs per query kind.
	Executed map[string]int64
}

// Stats returns the activity counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Snapshot returns the counters together with current table sizes.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Stats:    e.stats,
		Revision: e.Revision(),
		Entries:  e.entryCount(),
		Names:    e.interner.Len(),
		Kinds:    make(map[string]int, len(e.kindOrder)),
		Executed: make(map[string]int64, len(e.executed)),
	}
	for _, name := range e.kindOrder {
		s.Kinds[name] = e.tables[e.kinds[name]].size()
	}
	for name, n := range e.executed {
		s.Executed[name] = n
	}
	return s
}

// Executions returns how many times the body of k has run.
func (e *Engine) Executions(k Kind) int64 {
	return e.executed[k.Name()]
}
