// Package loc defines the stable addresses diagnostics and queries use:
// entity identifiers and source locations.
package loc

import (
	"fmt"
	"strings"

	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/serial"
)

// ID addresses an entity independent of in-memory pointers. Symbol is the
// dotted path of the enclosing declaration (for example "M.f"); PostOrder is
// the entity's post-order position inside that declaration, and
// NumContained is how many entities precede it in post-order and belong to
// it. PostOrder -1 refers to the declaration itself.
type ID struct {
	Symbol       intern.Name
	PostOrder    int
	NumContained int
}

// NewID creates an ID.
func NewID(symbol intern.Name, postOrder, numContained int) ID {
	return ID{Symbol: symbol, PostOrder: postOrder, NumContained: numContained}
}

// IsEmpty reports whether id is the zero ID.
func (id ID) IsEmpty() bool {
	return id.Symbol.IsEmpty() && id.PostOrder == 0 && id.NumContained == 0
}

// IsSymbol reports whether id names a declaration rather than an entity
// within one.
func (id ID) IsSymbol() bool {
	return id.PostOrder == -1
}

// Contains reports whether other is within id.
func (id ID) Contains(other ID) bool {
	if id.Symbol == other.Symbol {
		if id.IsSymbol() {
			return true
		}
		if other.IsSymbol() {
			return false
		}
		lo := id.PostOrder - id.NumContained
		return other.PostOrder >= lo && other.PostOrder <= id.PostOrder
	}
	// A declaration contains everything under its symbol path.
	if id.IsSymbol() {
		prefix := id.Symbol.String() + "."
		return strings.HasPrefix(other.Symbol.String(), prefix)
	}
	return false
}

// Compare orders IDs by symbol text then post-order position.
func (id ID) Compare(other ID) int {
	if c := strings.Compare(id.Symbol.String(), other.Symbol.String()); c != 0 {
		return c
	}
	switch {
	case id.PostOrder < other.PostOrder:
		return -1
	case id.PostOrder > other.PostOrder:
		return 1
	}
	return 0
}

// String renders "Symbol@PostOrder", or just the symbol for declarations.
func (id ID) String() string {
	if id.IsEmpty() {
		return "<no id>"
	}
	if id.IsSymbol() {
		return id.Symbol.String()
	}
	return fmt.Sprintf("%s@%d", id.Symbol.String(), id.PostOrder)
}

// Mark implements intern.Markable.
func (id ID) Mark(m *intern.Marker) {
	m.Mark(id.Symbol)
}

// Serialize implements serial.Serializable.
func (id ID) Serialize(s *serial.Serializer) {
	s.WriteName(id.Symbol)
	s.WriteVInt(id.PostOrder)
	s.WriteVInt(id.NumContained)
}

// ReadID reads an ID written by Serialize.
func ReadID(d *serial.Deserializer) ID {
	sym := d.ReadName()
	post := d.ReadVInt()
	return ID{Symbol: sym, PostOrder: post, NumContained: d.ReadVInt()}
}

// IDCodec encodes IDs.
var IDCodec = serial.Object(ReadID)

// Location is a span of source text. Lines and columns are 1-based; a zero
// line means unknown.
type Location struct {
	Path        intern.Name
	FirstLine   int
	FirstColumn int
	LastLine    int
	LastColumn  int
}

// NewLocation creates a Location.
func NewLocation(path intern.Name, firstLine, firstCol, lastLine, lastCol int) Location {
	return Location{
		Path:        path,
		FirstLine:   firstLine,
		FirstColumn: firstCol,
		LastLine:    lastLine,
		LastColumn:  lastCol,
	}
}

// IsEmpty reports whether l carries no position.
func (l Location) IsEmpty() bool {
	return l.Path.IsEmpty() && l.FirstLine == 0
}

// String renders "path:line:col", or "path" when the line is unknown.
func (l Location) String() string {
	if l.IsEmpty() {
		return "<unknown>"
	}
	if l.FirstLine == 0 {
		return l.Path.String()
	}
	return fmt.Sprintf("%s:%d:%d", l.Path.String(), l.FirstLine, l.FirstColumn)
}

// Mark implements intern.Markable.
func (l Location) Mark(m *intern.Marker) {
	m.Mark(l.Path)
}

// Serialize implements serial.Serializable.
func (l Location) Serialize(s *serial.Serializer) {
	s.WriteName(l.Path)
	s.WriteVInt(l.FirstLine)
	s.WriteVInt(l.FirstColumn)
	s.WriteVInt(l.LastLine)
	s.WriteVInt(l.LastColumn)
}

// ReadLocation reads a Location written by Serialize.
func ReadLocation(d *serial.Deserializer) Location {
	var l Location
	l.Path = d.ReadName()
	l.FirstLine = d.ReadVInt()
	l.FirstColumn = d.ReadVInt()
	l.LastLine = d.ReadVInt()
	l.LastColumn = d.ReadVInt()
	return l
}

// LocationCodec encodes Locations.
var LocationCodec = serial.Object(ReadLocation)
