package intern

// Markable is implemented by values that reference interned names.
type Markable interface {
	Mark(m *Marker)
}

// Marker records liveness during a Collect pass.
type Marker struct {
	table  *Table
	epoch  uint64
	marked int
}

// Mark flags n as live for the current pass.
func (m *Marker) Mark(n Name) {
	if n.r == nil || n.r.mark == m.epoch {
		return
	}
	// Names from another table or from an earlier sweep are ignored.
	if m.table.records[n.r.text] != n.r {
		return
	}
	n.r.mark = m.epoch
	m.marked++
}

// MarkAll marks every value in vs.
func (m *Marker) MarkAll(vs ...Markable) {
	for _, v := range vs {
		if v != nil {
			v.Mark(m)
		}
	}
}

// Marked returns the number of distinct names marked so far.
func (m *Marker) Marked() int {
	return m.marked
}

// Collect runs one mark/sweep pass. mark is called once with a Marker and
// must mark every name that is still referenced. Unmarked names are freed.
// Collect returns the number of names freed.
func (t *Table) Collect(mark func(m *Marker)) int {
	t.epoch++
	m := &Marker{table: t, epoch: t.epoch}
	if mark != nil {
		mark(m)
	}

	freed := 0
	for text, r := range t.records {
		if r.mark != t.epoch {
			delete(t.records, text)
			freed++
		}
	}
	return freed
}
