package decls

import (
	"fmt"
	"path"
	"slices"
	"strings"
	"text/scanner"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

// DeclKind distinguishes variable and type declarations.
type DeclKind uint8

const (
	DeclVar DeclKind = iota
	DeclType
)

// String returns the keyword for k.
func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclType:
		return "type"
	default:
		return fmt.Sprintf("DeclKind(%d)", uint8(k))
	}
}

// Decl is one declaration. For variables Type names the declared type; for
// types it names the aliased type and is empty for opaque types. TypeID
// addresses the type reference.
type Decl struct {
	ID     loc.ID
	Kind   DeclKind
	Name   intern.Name
	Type   intern.Name
	TypeID loc.ID
}

// Mark implements intern.Markable.
func (d Decl) Mark(m *intern.Marker) {
	d.ID.Mark(m)
	m.Mark(d.Name)
	m.Mark(d.Type)
	d.TypeID.Mark(m)
}

// File is the parsed form of one source file. It carries no positions or
// trivia, so edits that only move text leave it equal.
type File struct {
	Module intern.Name
	Decls  []Decl
}

// Equal reports whether f and o declare the same things.
func (f File) Equal(o File) bool {
	return f.Module == o.Module && slices.Equal(f.Decls, o.Decls)
}

// Mark implements intern.Markable.
func (f File) Mark(m *intern.Marker) {
	m.Mark(f.Module)
	for _, d := range f.Decls {
		d.Mark(m)
	}
}

// Spans maps entity IDs to the source text they came from.
type Spans map[loc.ID]loc.Location

// Mark implements intern.Markable.
func (s Spans) Mark(m *intern.Marker) {
	for id, l := range s {
		id.Mark(m)
		l.Mark(m)
	}
}

// ModuleName returns the module a file path defines: its base name up to
// the first dot.
func ModuleName(p string) string {
	base := path.Base(p)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// ModuleOf returns the module part of an entity's symbol path.
func ModuleOf(id loc.ID) string {
	sym := id.Symbol.String()
	if i := strings.IndexByte(sym, '.'); i >= 0 {
		return sym[:i]
	}
	return sym
}

// ParseSource parses src, interning names into names. Syntax errors are
// returned as diagnostics; the declarations that did parse are kept.
func ParseSource(names *intern.Table, filePath intern.Name, src string) (File, Spans, []diag.Diagnostic) {
	p := &parser{
		names:  names,
		path:   filePath,
		module: ModuleName(filePath.String()),
		spans:  make(Spans),
		counts: make(map[string]int),
	}
	p.s.Init(strings.NewReader(src))
	p.s.Filename = filePath.String()
	p.s.Mode = scanner.ScanIdents | scanner.ScanComments | scanner.SkipComments
	p.s.Error = func(s *scanner.Scanner, msg string) {
		p.errorAt(s.Pos(), "%s", msg)
	}
	p.file.Module = names.Intern(p.module)
	p.next()
	for p.tok != scanner.EOF {
		p.decl()
	}
	return p.file, p.spans, p.diags
}

type parser struct {
	s      scanner.Scanner
	tok    rune
	pos    scanner.Position
	text   string
	names  *intern.Table
	path   intern.Name
	module string
	counts map[string]int

	file  File
	spans Spans
	diags []diag.Diagnostic
}

func (p *parser) next() {
	p.tok = p.s.Scan()
	p.pos = p.s.Position
	p.text = p.s.TokenText()
}

func (p *parser) here() loc.Location {
	if p.tok == scanner.EOF || !p.pos.IsValid() {
		end := p.s.Pos()
		return loc.NewLocation(p.path, end.Line, end.Column, end.Line, end.Column)
	}
	return loc.NewLocation(p.path, p.pos.Line, p.pos.Column, p.pos.Line, p.pos.Column+len(p.text)-1)
}

func (p *parser) errorAt(pos scanner.Position, format string, args ...any) {
	l := loc.NewLocation(p.path, pos.Line, pos.Column, pos.Line, pos.Column)
	p.diags = append(p.diags, diag.Syntaxf(l, format, args...))
}

func (p *parser) errorf(format string, args ...any) {
	p.diags = append(p.diags, diag.Syntaxf(p.here(), format, args...))
}

func (p *parser) found() string {
	switch p.tok {
	case scanner.EOF:
		return "end of file"
	case scanner.Ident:
		return fmt.Sprintf("'%s'", p.text)
	default:
		return fmt.Sprintf("'%c'", p.tok)
	}
}

func isKeyword(s string) bool {
	return s == "var" || s == "type"
}

// skip advances past the next ';' so parsing resumes at a declaration.
// Parsing also resumes at a keyword, so one bad line cannot swallow the next
// declaration.
func (p *parser) skip() {
	for p.tok != scanner.EOF {
		if p.tok == ';' {
			p.next()
			return
		}
		p.next()
		if p.tok == scanner.Ident && isKeyword(p.text) {
			return
		}
	}
}

func (p *parser) ident(what string) (string, loc.Location, bool) {
	if p.tok != scanner.Ident || isKeyword(p.text) {
		p.errorf("expected %s, found %s", what, p.found())
		return "", loc.Location{}, false
	}
	text, at := p.text, p.here()
	p.next()
	return text, at, true
}

// typeRef parses a type name, optionally qualified by a module as in
// "shapes.point".
func (p *parser) typeRef() (string, loc.Location, bool) {
	name, at, ok := p.ident("type name")
	if !ok || p.tok != '.' {
		return name, at, ok
	}
	p.next()
	member, end, ok := p.ident("type name after '.'")
	if !ok {
		return "", loc.Location{}, false
	}
	at.LastLine, at.LastColumn = end.LastLine, end.LastColumn
	return name + "." + member, at, true
}

func (p *parser) expect(r rune) bool {
	if p.tok != r {
		p.errorf("expected '%c', found %s", r, p.found())
		return false
	}
	p.next()
	return true
}

func (p *parser) decl() {
	if p.tok != scanner.Ident || !isKeyword(p.text) {
		p.errorf("expected 'var' or 'type', found %s", p.found())
		p.skip()
		return
	}
	kind := DeclVar
	if p.text == "type" {
		kind = DeclType
	}
	p.next()

	what := "variable name"
	if kind == DeclType {
		what = "type name"
	}
	name, nameAt, ok := p.ident(what)
	if !ok {
		p.skip()
		return
	}

	var typ string
	var typAt loc.Location
	switch {
	case kind == DeclVar:
		if !p.expect(':') {
			p.skip()
			return
		}
		if typ, typAt, ok = p.typeRef(); !ok {
			p.skip()
			return
		}
	case p.tok == '=':
		p.next()
		if typ, typAt, ok = p.typeRef(); !ok {
			p.skip()
			return
		}
	}
	if !p.expect(';') {
		p.skip()
		return
	}
	p.add(kind, name, nameAt, typ, typAt)
}

func (p *parser) add(kind DeclKind, name string, nameAt loc.Location, typ string, typAt loc.Location) {
	sym := p.module + "." + name
	if n := p.counts[name]; n > 0 {
		sym = fmt.Sprintf("%s#%d", sym, n)
	}
	p.counts[name]++

	symbol := p.names.Intern(sym)
	d := Decl{
		ID:   loc.NewID(symbol, -1, 0),
		Kind: kind,
		Name: p.names.Intern(name),
	}
	if typ != "" {
		d.ID.NumContained = 1
		d.Type = p.names.Intern(typ)
		d.TypeID = loc.NewID(symbol, 0, 0)
		p.spans[d.TypeID] = typAt
	}
	p.spans[d.ID] = nameAt
	p.file.Decls = append(p.file.Decls, d)
}
