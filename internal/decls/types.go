package decls

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

// Project keys the file list. A session checks one project.
const Project = "main"

// Paths is an ordered list of source paths.
type Paths []intern.Name

// Equal reports whether p and o list the same paths in the same order.
func (p Paths) Equal(o Paths) bool {
	return slices.Equal(p, o)
}

// Mark implements intern.Markable.
func (p Paths) Mark(m *intern.Marker) {
	for _, n := range p {
		m.Mark(n)
	}
}

// Modules maps module names to the path defining them.
type Modules map[intern.Name]intern.Name

// Equal reports whether m and o map the same modules to the same paths.
func (m Modules) Equal(o Modules) bool {
	return maps.Equal(m, o)
}

// Mark implements intern.Markable.
func (m Modules) Mark(mk *intern.Marker) {
	for k, v := range m {
		mk.Mark(k)
		mk.Mark(v)
	}
}

// Equal reports whether s and o hold the same positions.
func (s Spans) Equal(o Spans) bool {
	return maps.Equal(s, o)
}

// Scope is the set of names a module declares, each bound to its first
// definition.
type Scope struct {
	Module intern.Name
	Names  map[intern.Name]loc.ID
}

// Equal reports whether s and o bind the same names.
func (s Scope) Equal(o Scope) bool {
	return s.Module == o.Module && maps.Equal(s.Names, o.Names)
}

// Mark implements intern.Markable.
func (s Scope) Mark(m *intern.Marker) {
	m.Mark(s.Module)
	for n, id := range s.Names {
		m.Mark(n)
		id.Mark(m)
	}
}

// TypeKind classifies a Type.
type TypeKind uint8

const (
	// TypeError is the type of anything that failed to check.
	TypeError TypeKind = iota
	TypeBuiltin
	TypeNamed
)

// Type is the checked meaning of a type reference. Aliases are resolved to
// their target, so two references to the same type compare equal.
type Type struct {
	Kind TypeKind
	Name intern.Name
	Decl loc.ID
}

// ErrorType is returned wherever a type could not be determined.
var ErrorType = Type{Kind: TypeError}

var builtins = map[string]bool{
	"int":    true,
	"string": true,
	"bool":   true,
}

// IsBuiltin reports whether name is a predeclared type.
func IsBuiltin(name string) bool {
	return builtins[name]
}

// String renders builtins by name, named types by their qualified symbol.
func (t Type) String() string {
	switch t.Kind {
	case TypeBuiltin:
		return t.Name.String()
	case TypeNamed:
		return t.Decl.Symbol.String()
	default:
		return "<error>"
	}
}

// Mark implements intern.Markable.
func (t Type) Mark(m *intern.Marker) {
	m.Mark(t.Name)
	t.Decl.Mark(m)
}

// Binding is the checked form of one declaration.
type Binding struct {
	ID   loc.ID
	Kind DeclKind
	Name intern.Name
	Type Type
}

// String renders "var x: int" or "type t = int".
func (b Binding) String() string {
	sep := ":"
	if b.Kind == DeclType {
		sep = " ="
	}
	return fmt.Sprintf("%s %s%s %s", b.Kind, b.Name, sep, b.Type)
}

// Bindings is the result of checking a file, in declaration order.
type Bindings []Binding

// Equal reports whether b and o are identical.
func (b Bindings) Equal(o Bindings) bool {
	return slices.Equal(b, o)
}

// Mark implements intern.Markable.
func (b Bindings) Mark(m *intern.Marker) {
	for _, x := range b {
		x.ID.Mark(m)
		m.Mark(x.Name)
		x.Type.Mark(m)
	}
}

// ResolveKey asks for the declaration a name denotes within a module.
type ResolveKey struct {
	Module intern.Name
	Name   intern.Name
}

// Mark implements intern.Markable.
func (k ResolveKey) Mark(m *intern.Marker) {
	m.Mark(k.Module)
	m.Mark(k.Name)
}

// splitRef splits a possibly qualified type reference into module and name.
// An unqualified reference belongs to home.
func splitRef(ref, home string) (string, string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return home, ref
}
