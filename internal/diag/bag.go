package diag

// Bag accumulates diagnostics in report order, dropping any whose Key was
// already added.
type Bag struct {
	items []Diagnostic
	seen  map[Key]struct{}
}

// NewBag creates an empty Bag.
func NewBag() *Bag {
	return &Bag{seen: make(map[Key]struct{})}
}

// Add appends d unless an equal (location, message) diagnostic is present.
// It reports whether d was added.
func (b *Bag) Add(d Diagnostic) bool {
	if b.seen == nil {
		b.seen = make(map[Key]struct{})
	}
	k := d.Key()
	if _, dup := b.seen[k]; dup {
		return false
	}
	b.seen[k] = struct{}{}
	b.items = append(b.items, d)
	return true
}

// AddAll adds every diagnostic in ds.
func (b *Bag) AddAll(ds []Diagnostic) {
	for _, d := range ds {
		b.Add(d)
	}
}

// All returns the diagnostics in the order they were added.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of diagnostics.
func (b *Bag) Len() int {
	return len(b.items)
}

// HasErrors reports whether any diagnostic is an error or syntax error.
func (b *Bag) HasErrors() bool {
	return HasErrors(b.items)
}

// Reset empties the bag.
func (b *Bag) Reset() {
	b.items = nil
	b.seen = make(map[Key]struct{})
}

// HasErrors reports whether any diagnostic in ds is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Kind.IsError() {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics of each kind.
func Count(ds []Diagnostic) map[Kind]int {
	out := make(map[Kind]int)
	for _, d := range ds {
		out[d.Kind]++
	}
	return out
}
