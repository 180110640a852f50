package diag

import (
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

// Detail is the kind-specific payload of a diagnostic.
type Detail interface {
	intern.Markable
	detail()
}

// CycleDetail lists the query descriptors that formed a cycle.
type CycleDetail struct {
	Path []string
}

func (CycleDetail) detail() {}

// Mark implements intern.Markable.
func (CycleDetail) Mark(*intern.Marker) {}

// RedefinitionDetail carries the redefined name and every defining ID.
type RedefinitionDetail struct {
	Name   intern.Name
	Others []loc.ID
}

func (RedefinitionDetail) detail() {}

// Mark implements intern.Markable.
func (r RedefinitionDetail) Mark(m *intern.Marker) {
	m.Mark(r.Name)
	for _, id := range r.Others {
		id.Mark(m)
	}
}

// UnknownDetail carries the unresolved name.
type UnknownDetail struct {
	Name intern.Name
}

func (UnknownDetail) detail() {}

// Mark implements intern.Markable.
func (u UnknownDetail) Mark(m *intern.Marker) {
	m.Mark(u.Name)
}
