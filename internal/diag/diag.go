package diag

import (
	"fmt"
	"strings"

	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

// Kind is the severity of a diagnostic.
type Kind uint8

const (
	KindError Kind = iota
	KindWarning
	KindNote
	KindSyntax
)

// String returns the lower-case severity name.
func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindWarning:
		return "warning"
	case KindNote:
		return "note"
	case KindSyntax:
		return "syntax"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsError reports whether k stops a compilation: errors and syntax errors.
func (k Kind) IsError() bool {
	return k == KindError || k == KindSyntax
}

// Code tags the diagnostic variant.
type Code uint16

const (
	CodeGeneral Code = iota
	CodeSyntax
	CodeCycle
	CodeRedefinition
	CodeUnknownType
	CodeUnknownName
)

// String returns the variant name.
func (c Code) String() string {
	switch c {
	case CodeGeneral:
		return "General"
	case CodeSyntax:
		return "Syntax"
	case CodeCycle:
		return "QueryCycle"
	case CodeRedefinition:
		return "Redefinition"
	case CodeUnknownType:
		return "UnknownType"
	case CodeUnknownName:
		return "UnknownName"
	default:
		return fmt.Sprintf("Code(%d)", uint16(c))
	}
}

// Note is secondary context attached to a diagnostic.
type Note struct {
	ID      loc.ID
	Loc     loc.Location
	Message string
}

// Diagnostic is one reported problem. Treat it as immutable: the With
// methods return modified copies.
type Diagnostic struct {
	Kind    Kind
	Code    Code
	ID      loc.ID
	Loc     loc.Location
	Message string
	Notes   []Note
	Detail  Detail
}

// Key identifies a diagnostic for de-duplication.
type Key struct {
	ID      loc.ID
	Loc     loc.Location
	Message string
}

// Key returns the (location, message) identity of d.
func (d Diagnostic) Key() Key {
	return Key{ID: d.ID, Loc: d.Loc, Message: d.Message}
}

// HasID reports whether d is addressed by entity ID rather than location.
func (d Diagnostic) HasID() bool {
	return !d.ID.IsEmpty()
}

// WithNote returns a copy of d with a note addressed by entity ID.
func (d Diagnostic) WithNote(id loc.ID, format string, args ...any) Diagnostic {
	return d.withNote(Note{ID: id, Message: sprintf(format, args)})
}

// WithNoteAt returns a copy of d with a note at a location.
func (d Diagnostic) WithNoteAt(l loc.Location, format string, args ...any) Diagnostic {
	return d.withNote(Note{Loc: l, Message: sprintf(format, args)})
}

func (d Diagnostic) withNote(n Note) Diagnostic {
	notes := make([]Note, len(d.Notes), len(d.Notes)+1)
	copy(notes, d.Notes)
	d.Notes = append(notes, n)
	return d
}

// String renders a one-line summary without resolving IDs to locations.
func (d Diagnostic) String() string {
	where := d.Loc.String()
	if d.HasID() {
		where = d.ID.String()
	}
	return fmt.Sprintf("%s: %s: %s", where, d.Kind, d.Message)
}

// Mark implements intern.Markable.
func (d Diagnostic) Mark(m *intern.Marker) {
	d.ID.Mark(m)
	d.Loc.Mark(m)
	for _, n := range d.Notes {
		n.ID.Mark(m)
		n.Loc.Mark(m)
	}
	if d.Detail != nil {
		d.Detail.Mark(m)
	}
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// New creates a diagnostic addressed by entity ID.
func New(kind Kind, code Code, id loc.ID, message string) Diagnostic {
	return Diagnostic{Kind: kind, Code: code, ID: id, Message: message}
}

// NewAt creates a diagnostic at a location.
func NewAt(kind Kind, code Code, l loc.Location, message string) Diagnostic {
	return Diagnostic{Kind: kind, Code: code, Loc: l, Message: message}
}

// Errorf creates a general error addressed by entity ID.
func Errorf(id loc.ID, format string, args ...any) Diagnostic {
	return New(KindError, CodeGeneral, id, sprintf(format, args))
}

// ErrorAtf creates a general error at a location.
func ErrorAtf(l loc.Location, format string, args ...any) Diagnostic {
	return NewAt(KindError, CodeGeneral, l, sprintf(format, args))
}

// Warningf creates a general warning addressed by entity ID.
func Warningf(id loc.ID, format string, args ...any) Diagnostic {
	return New(KindWarning, CodeGeneral, id, sprintf(format, args))
}

// WarningAtf creates a general warning at a location.
func WarningAtf(l loc.Location, format string, args ...any) Diagnostic {
	return NewAt(KindWarning, CodeGeneral, l, sprintf(format, args))
}

// Syntaxf creates a syntax error at a location.
func Syntaxf(l loc.Location, format string, args ...any) Diagnostic {
	return NewAt(KindSyntax, CodeSyntax, l, sprintf(format, args))
}

// Cycle creates the diagnostic reported when a query depends on itself.
// path lists the queries from the outermost repetition back to itself.
func Cycle(id loc.ID, path []string) Diagnostic {
	d := New(KindError, CodeCycle, id, "query cycle detected: "+strings.Join(path, " -> "))
	d.Detail = CycleDetail{Path: append([]string(nil), path...)}
	return d
}

// Redefinition reports that name is declared at first and again at others.
func Redefinition(name intern.Name, first loc.ID, others []loc.ID) Diagnostic {
	d := New(KindError, CodeRedefinition, first, fmt.Sprintf("'%s' has multiple definitions", name.String()))
	for _, o := range others {
		if o != first {
			d = d.WithNote(o, "redefined here")
		}
	}
	d.Detail = RedefinitionDetail{Name: name, Others: append([]loc.ID(nil), others...)}
	return d
}

// UnknownType reports a reference to an undeclared type.
func UnknownType(id loc.ID, name intern.Name) Diagnostic {
	d := New(KindError, CodeUnknownType, id, fmt.Sprintf("unknown type '%s'", name.String()))
	d.Detail = UnknownDetail{Name: name}
	return d
}

// UnknownName reports a reference to an undeclared name.
func UnknownName(id loc.ID, name intern.Name) Diagnostic {
	d := New(KindError, CodeUnknownName, id, fmt.Sprintf("unknown name '%s'", name.String()))
	d.Detail = UnknownDetail{Name: name}
	return d
}
