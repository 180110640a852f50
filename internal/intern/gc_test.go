package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type holder struct {
	names []Name
}

func (h holder) Mark(m *Marker) {
	for _, n := range h.names {
		m.Mark(n)
	}
}

func TestCollect_FreesUnmarked(t *testing.T) {
	tab := NewTable()
	keep := tab.Intern("keep")
	tab.Intern("drop")

	freed := tab.Collect(func(m *Marker) {
		m.Mark(keep)
	})

	assert.Equal(t, 1, freed)
	assert.Equal(t, 1, tab.Len())
	assert.True(t, tab.Owns(keep))
	_, ok := tab.Lookup("drop")
	assert.False(t, ok)
}

func TestCollect_NilMarkFreesEverything(t *testing.T) {
	tab := NewTable()
	tab.Intern("a")
	tab.Intern("b")

	assert.Equal(t, 2, tab.Collect(nil))
	assert.Equal(t, 0, tab.Len())
}

func TestCollect_MarkableValues(t *testing.T) {
	tab := NewTable()
	h := holder{names: []Name{tab.Intern("x"), tab.Intern("y"), tab.Intern("x")}}
	tab.Intern("z")

	var marked int
	freed := tab.Collect(func(m *Marker) {
		m.MarkAll(h)
		marked = m.Marked()
	})

	assert.Equal(t, 2, marked, "duplicate marks count once")
	assert.Equal(t, 1, freed)
}

func TestCollect_SweptNameKeepsTextButLosesIdentity(t *testing.T) {
	tab := NewTable()
	old := tab.Intern("ephemeral")

	tab.Collect(nil)

	assert.Equal(t, "ephemeral", old.String())
	assert.False(t, tab.Owns(old))

	fresh := tab.Intern("ephemeral")
	assert.False(t, fresh == old)
}

func TestCollect_MarkingSweptNameIsIgnored(t *testing.T) {
	tab := NewTable()
	old := tab.Intern("gone")
	tab.Collect(nil)

	fresh := tab.Intern("gone")
	freed := tab.Collect(func(m *Marker) {
		m.Mark(old) // stale identity must not keep the new record alive
	})

	assert.Equal(t, 1, freed)
	assert.False(t, tab.Owns(fresh))
}

func TestCollect_SurvivorsPersistAcrossPasses(t *testing.T) {
	tab := NewTable()
	n := tab.Intern("long-lived")

	for i := 0; i < 3; i++ {
		tab.Collect(func(m *Marker) { m.Mark(n) })
	}

	assert.True(t, tab.Owns(n))
	assert.True(t, n == tab.Intern("long-lived"))
}
