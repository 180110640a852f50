package decls

import (
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

// Serialize implements serial.Serializable.
func (d Decl) Serialize(s *serial.Serializer) {
	d.ID.Serialize(s)
	s.WriteU8(uint8(d.Kind))
	s.WriteName(d.Name)
	s.WriteName(d.Type)
	d.TypeID.Serialize(s)
}

// ReadDecl reads a Decl written by Serialize.
func ReadDecl(d *serial.Deserializer) Decl {
	var x Decl
	x.ID = loc.ReadID(d)
	x.Kind = DeclKind(d.ReadU8())
	x.Name = d.ReadName()
	x.Type = d.ReadName()
	x.TypeID = loc.ReadID(d)
	return x
}

var declList = serial.SliceOf(serial.Object(ReadDecl))

// Serialize implements serial.Serializable.
func (f File) Serialize(s *serial.Serializer) {
	s.WriteName(f.Module)
	declList.Write(s, f.Decls)
}

// ReadFile reads a File written by Serialize.
func ReadFile(d *serial.Deserializer) File {
	module := d.ReadName()
	decls := declList.Read(d)
	if len(decls) == 0 {
		decls = nil
	}
	return File{Module: module, Decls: decls}
}

// Serialize implements serial.Serializable.
func (t Type) Serialize(s *serial.Serializer) {
	s.WriteU8(uint8(t.Kind))
	s.WriteName(t.Name)
	t.Decl.Serialize(s)
}

// ReadType reads a Type written by Serialize.
func ReadType(d *serial.Deserializer) Type {
	kind := TypeKind(d.ReadU8())
	name := d.ReadName()
	return Type{Kind: kind, Name: name, Decl: loc.ReadID(d)}
}

// Serialize implements serial.Serializable.
func (b Binding) Serialize(s *serial.Serializer) {
	b.ID.Serialize(s)
	s.WriteU8(uint8(b.Kind))
	s.WriteName(b.Name)
	b.Type.Serialize(s)
}

// ReadBinding reads a Binding written by Serialize.
func ReadBinding(d *serial.Deserializer) Binding {
	var b Binding
	b.ID = loc.ReadID(d)
	b.Kind = DeclKind(d.ReadU8())
	b.Name = d.ReadName()
	b.Type = ReadType(d)
	return b
}

// Serialize implements serial.Serializable.
func (k ResolveKey) Serialize(s *serial.Serializer) {
	s.WriteName(k.Module)
	s.WriteName(k.Name)
}

// ReadResolveKey reads a ResolveKey written by Serialize.
func ReadResolveKey(d *serial.Deserializer) ResolveKey {
	module := d.ReadName()
	return ResolveKey{Module: module, Name: d.ReadName()}
}

func compareIDs(a, b loc.ID) int {
	return a.Compare(b)
}

var (
	pathList   = serial.SliceOf(serial.Name)
	moduleMap  = serial.MapFunc(serial.Name, serial.Name, serial.CompareNames)
	spanMap    = serial.MapFunc(loc.IDCodec, loc.LocationCodec, compareIDs)
	scopeNames = serial.MapFunc(serial.Name, loc.IDCodec, serial.CompareNames)
	bindList   = serial.SliceOf(serial.Object(ReadBinding))
)

// Codecs for every persisted decls value.
var (
	FileCodec       = serial.Object(ReadFile)
	TypeCodec       = serial.Object(ReadType)
	ResolveKeyCodec = serial.Object(ReadResolveKey)
	DeclCodec       = serial.Object(ReadDecl)

	PathsCodec = serial.Codec[Paths]{
		Write: func(s *serial.Serializer, v Paths) { pathList.Write(s, v) },
		Read:  func(d *serial.Deserializer) Paths { return pathList.Read(d) },
	}
	ModulesCodec = serial.Codec[Modules]{
		Write: func(s *serial.Serializer, v Modules) { moduleMap.Write(s, v) },
		Read:  func(d *serial.Deserializer) Modules { return moduleMap.Read(d) },
	}
	SpansCodec = serial.Codec[Spans]{
		Write: func(s *serial.Serializer, v Spans) { spanMap.Write(s, v) },
		Read:  func(d *serial.Deserializer) Spans { return spanMap.Read(d) },
	}
	ScopeCodec = serial.Codec[Scope]{
		Write: func(s *serial.Serializer, v Scope) {
			s.WriteName(v.Module)
			scopeNames.Write(s, v.Names)
		},
		Read: func(d *serial.Deserializer) Scope {
			module := d.ReadName()
			return Scope{Module: module, Names: scopeNames.Read(d)}
		},
	}
	BindingsCodec = serial.Codec[Bindings]{
		Write: func(s *serial.Serializer, v Bindings) { bindList.Write(s, v) },
		Read:  func(d *serial.Deserializer) Bindings { return bindList.Read(d) },
	}
)
