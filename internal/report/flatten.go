package report

import (
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/loc"
)

// Flat is a diagnostic reduced to (location, message, notes), with entity
// IDs resolved.
type Flat struct {
	Kind     diag.Kind
	Code     diag.Code
	ID       loc.ID
	Location loc.Location
	Message  string
	Notes    []FlatNote
}

// FlatNote is a note with its location resolved.
type FlatNote struct {
	ID       loc.ID
	Location loc.Location
	Message  string
}

// Flatten resolves the locations of d and its notes. l may be nil.
func Flatten(d diag.Diagnostic, l engine.Locator) Flat {
	f := Flat{
		Kind:     d.Kind,
		Code:     d.Code,
		ID:       d.ID,
		Location: resolve(l, d.ID, d.Loc),
		Message:  d.Message,
	}
	for _, n := range d.Notes {
		f.Notes = append(f.Notes, FlatNote{
			ID:       n.ID,
			Location: resolve(l, n.ID, n.Loc),
			Message:  n.Message,
		})
	}
	return f
}

func resolve(l engine.Locator, id loc.ID, at loc.Location) loc.Location {
	if id.IsEmpty() || l == nil {
		return at
	}
	if found, ok := l.Locate(id); ok {
		return found
	}
	return at
}

// where renders a resolved location, falling back to the ID.
func where(id loc.ID, at loc.Location) string {
	if at.IsEmpty() && !id.IsEmpty() {
		return id.String()
	}
	return at.String()
}
