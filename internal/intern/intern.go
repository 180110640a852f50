package intern

// record is the single allocation backing a Name.
type record struct {
	text string
	mark uint64
}

// Name is an interned string. Compare Names with ==.
type Name struct {
	r *record
}

// String returns the interned text.
func (n Name) String() string {
	if n.r == nil {
		return ""
	}
	return n.r.text
}

// IsEmpty reports whether n is the empty name.
func (n Name) IsEmpty() bool {
	return n.r == nil
}

// Len returns the length of the interned text in bytes.
func (n Name) Len() int {
	if n.r == nil {
		return 0
	}
	return len(n.r.text)
}

// Mark implements Markable.
func (n Name) Mark(m *Marker) {
	m.Mark(n)
}

// Table owns the records of every interned name.
type Table struct {
	records map[string]*record
	epoch   uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		records: make(map[string]*record),
	}
}

// Intern returns the canonical Name for s, creating it if absent.
func (t *Table) Intern(s string) Name {
	if s == "" {
		return Name{}
	}
	if r, ok := t.records[s]; ok {
		return Name{r: r}
	}
	r := &record{text: s, mark: t.epoch}
	t.records[s] = r
	return Name{r: r}
}

// InternBytes is Intern for a byte slice. The bytes are copied.
func (t *Table) InternBytes(b []byte) Name {
	if len(b) == 0 {
		return Name{}
	}
	// The string conversion in the map index does not allocate.
	if r, ok := t.records[string(b)]; ok {
		return Name{r: r}
	}
	return t.Intern(string(b))
}

// Lookup returns the Name for s without creating one.
func (t *Table) Lookup(s string) (Name, bool) {
	if s == "" {
		return Name{}, true
	}
	r, ok := t.records[s]
	if !ok {
		return Name{}, false
	}
	return Name{r: r}, true
}

// Owns reports whether n is the identity currently registered in t for its
// text. Names swept by Collect are no longer owned.
func (t *Table) Owns(n Name) bool {
	if n.r == nil {
		return true
	}
	return t.records[n.r.text] == n.r
}

// Len returns the number of interned names.
func (t *Table) Len() int {
	return len(t.records)
}

// Reset drops every record.
func (t *Table) Reset() {
	t.records = make(map[string]*record)
}
