package engine

import (
	"github.com/roach88/incr/internal/diag"
)

// Report records d against the query body that is executing. Outside any
// query it goes to the session-level diagnostics.
func (e *Engine) Report(d diag.Diagnostic) {
	e.checkOpen()
	if len(e.stack) == 0 {
		e.session.Add(d)
		return
	}
	f := e.stack[len(e.stack)-1]
	f.diags = append(f.diags, d)
}

// SessionDiagnostics returns the diagnostics reported outside any query.
func (e *Engine) SessionDiagnostics() []diag.Diagnostic {
	return e.session.All()
}

// collect gathers the diagnostics reachable from s: depth-first over the
// recorded edges, each entry's own diagnostics first, duplicates dropped.
// Each entry is visited once, so shared dependencies contribute once.
func (e *Engine) collect(s slot) []diag.Diagnostic {
	bag := diag.NewBag()
	visited := make(map[*node]bool)

	var walk func(s slot)
	walk = func(s slot) {
		n := s.base()
		if visited[n] {
			return
		}
		visited[n] = true
		bag.AddAll(n.diags)
		for _, d := range n.deps {
			walk(d.callee)
		}
	}
	walk(s)
	return bag.All()
}
