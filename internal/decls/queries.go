package decls

import (
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

// Inputs.
var (
	// FileList holds the source paths of a project, in check order.
	FileList = engine.NewInput[string, Paths]("decls.files").
		Persist(serial.String, PathsCodec)

	// Source holds the text of each file.
	Source = engine.NewInput[intern.Name, string]("decls.source").
		Persist(serial.Name, serial.String)
)

// Queries.
var (
	// Parse returns the declarations of a file and reports its syntax
	// errors.
	Parse = engine.NewQuery("decls.parse", parseFile).
		Persist(serial.Name, FileCodec)

	// SpansOf returns the source positions of a file's entities.
	SpansOf = engine.NewQuery("decls.spans", fileSpans).
		Persist(serial.Name, SpansCodec)

	// ModulePaths maps each module of a project to the file defining it.
	ModulePaths = engine.NewQuery("decls.modules", modulePaths).
		Persist(serial.String, ModulesCodec)

	// Declarations returns the scope of a file and reports names defined
	// more than once.
	Declarations = engine.NewQuery("decls.scope", declarations).
		Persist(serial.Name, ScopeCodec)

	// Resolve returns the declaration a name denotes in a module, or the
	// empty ID.
	Resolve = engine.NewQuery("decls.resolve", resolve).
		Persist(ResolveKeyCodec, loc.IDCodec)

	// FindDecl returns the declaration with the given ID.
	FindDecl = engine.NewQuery("decls.find", findDecl).
		Persist(loc.IDCodec, DeclCodec)

	// Check type-checks every declaration of a file.
	Check = engine.NewQuery("decls.check", check).
		Persist(serial.Name, BindingsCodec)

	// Locate returns the source position of an entity.
	Locate = engine.NewQuery("decls.locate", locate).
		Persist(loc.IDCodec, loc.LocationCodec)
)

// TypeOf returns the type a declaration denotes: its declared type for a
// variable, the aliased type for an alias and itself for an opaque type.
// Alias cycles yield ErrorType and a cycle diagnostic.
var TypeOf *engine.Query[loc.ID, Type]

func init() {
	TypeOf = engine.NewQuery("decls.typeOf", typeOf).
		WithSentinel(func(loc.ID) Type { return ErrorType }).
		Persist(loc.IDCodec, TypeCodec)
}

// Kinds returns every decls input and query, for engine.WithQueries.
func Kinds() []engine.Kind {
	return []engine.Kind{
		FileList, Source,
		Parse, SpansOf, ModulePaths, Declarations, Resolve, FindDecl, TypeOf, Check, Locate,
	}
}

// SetFiles replaces the project's file list.
func SetFiles(e *engine.Engine, paths ...string) engine.Revision {
	ps := make(Paths, len(paths))
	for i, p := range paths {
		ps[i] = e.Intern(p)
	}
	return FileList.Set(e, Project, ps)
}

// SetSource stores the text of path.
func SetSource(e *engine.Engine, path, text string) engine.Revision {
	return Source.Set(e, e.Intern(path), text)
}

func fileLocation(path intern.Name) loc.Location {
	return loc.NewLocation(path, 0, 0, 0, 0)
}

func parseFile(e *engine.Engine, path intern.Name) File {
	src, ok := Source.Lookup(e, path)
	if !ok {
		e.Report(diag.ErrorAtf(fileLocation(path), "no source for %s", path))
		return File{Module: e.Intern(ModuleName(path.String()))}
	}
	f, _, ds := ParseSource(e.Interner(), path, src)
	for _, d := range ds {
		e.Report(d)
	}
	return f
}

// fileSpans parses again; only Parse reports the syntax errors.
func fileSpans(e *engine.Engine, path intern.Name) Spans {
	src, ok := Source.Lookup(e, path)
	if !ok {
		return Spans{}
	}
	_, spans, _ := ParseSource(e.Interner(), path, src)
	return spans
}

func modulePaths(e *engine.Engine, project string) Modules {
	out := make(Modules)
	for _, p := range FileList.Get(e, project) {
		m := e.Intern(ModuleName(p.String()))
		if prev, ok := out[m]; ok {
			e.Report(diag.ErrorAtf(fileLocation(p), "module '%s' is already defined by %s", m, prev))
			continue
		}
		out[m] = p
	}
	return out
}

func declarations(e *engine.Engine, path intern.Name) Scope {
	f := Parse.Get(e, path)
	sc := Scope{Module: f.Module, Names: make(map[intern.Name]loc.ID, len(f.Decls))}

	defs := make(map[intern.Name][]loc.ID)
	var order []intern.Name
	for _, d := range f.Decls {
		if _, seen := defs[d.Name]; !seen {
			order = append(order, d.Name)
		}
		defs[d.Name] = append(defs[d.Name], d.ID)
	}
	for _, name := range order {
		ids := defs[name]
		sc.Names[name] = ids[0]
		if len(ids) > 1 {
			e.Report(diag.Redefinition(name, ids[0], ids[1:]))
		}
	}
	return sc
}

func resolve(e *engine.Engine, k ResolveKey) loc.ID {
	path, ok := ModulePaths.Get(e, Project)[k.Module]
	if !ok {
		return loc.ID{}
	}
	return Declarations.Get(e, path).Names[k.Name]
}

func findDecl(e *engine.Engine, id loc.ID) Decl {
	path, ok := ModulePaths.Get(e, Project)[e.Intern(ModuleOf(id))]
	if !ok {
		return Decl{}
	}
	for _, d := range Parse.Get(e, path).Decls {
		if d.ID == id {
			return d
		}
	}
	return Decl{}
}

func typeOf(e *engine.Engine, id loc.ID) Type {
	d := FindDecl.Get(e, id)
	switch {
	case d.ID.IsEmpty():
		e.Report(diag.Errorf(id, "no declaration %s", id))
		return ErrorType
	case d.Kind == DeclType && d.Type.IsEmpty():
		return Type{Kind: TypeNamed, Name: d.Name, Decl: d.ID}
	}

	ref := d.Type.String()
	if IsBuiltin(ref) {
		return Type{Kind: TypeBuiltin, Name: d.Type}
	}
	module, name := splitRef(ref, ModuleOf(id))
	target := Resolve.Get(e, ResolveKey{Module: e.Intern(module), Name: e.Intern(name)})
	if target.IsEmpty() {
		e.Report(diag.UnknownType(d.TypeID, d.Type))
		return ErrorType
	}
	if FindDecl.Get(e, target).Kind != DeclType {
		e.Report(diag.Errorf(d.TypeID, "'%s' is not a type", d.Type).
			WithNote(target, "'%s' is declared here", d.Type))
		return ErrorType
	}
	return TypeOf.Get(e, target)
}

func check(e *engine.Engine, path intern.Name) Bindings {
	Declarations.Get(e, path)
	f := Parse.Get(e, path)
	if len(f.Decls) == 0 {
		return nil
	}
	out := make(Bindings, 0, len(f.Decls))
	for _, d := range f.Decls {
		out = append(out, Binding{ID: d.ID, Kind: d.Kind, Name: d.Name, Type: TypeOf.Get(e, d.ID)})
	}
	return out
}

func locate(e *engine.Engine, id loc.ID) loc.Location {
	path, ok := ModulePaths.Get(e, Project)[e.Intern(ModuleOf(id))]
	if !ok {
		return loc.Location{}
	}
	return SpansOf.Get(e, path)[id]
}

// NewLocator resolves IDs through the Locate query.
func NewLocator(e *engine.Engine) engine.Locator {
	return engine.LocatorFunc(func(id loc.ID) (loc.Location, bool) {
		l := Locate.Get(e, id)
		return l, !l.IsEmpty()
	})
}
