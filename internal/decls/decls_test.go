package decls_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/incr/internal/decls"
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithSessionID("decls-test"),
		engine.WithQueries(decls.Kinds()...),
	)
	t.Cleanup(e.Close)
	return e
}

// load sets the file list and sources, in the order given.
func load(e *engine.Engine, files ...[2]string) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f[0]
		decls.SetSource(e, f[0], f[1])
	}
	decls.SetFiles(e, paths...)
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

func rendered(bs decls.Bindings) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.String()
	}
	return out
}

func TestParseSource_Declarations(t *testing.T) {
	names := intern.NewTable()
	path := names.Intern("a.decl")
	f, spans, ds := decls.ParseSource(names, path, "type coord = int;\nvar x: coord;\ntype opaque;\n")
	require.Empty(t, ds)

	assert.Equal(t, "a", f.Module.String())
	require.Len(t, f.Decls, 3)

	coord := f.Decls[0]
	assert.Equal(t, decls.DeclType, coord.Kind)
	assert.Equal(t, loc.NewID(names.Intern("a.coord"), -1, 1), coord.ID)
	assert.Equal(t, "int", coord.Type.String())
	assert.Equal(t, loc.NewID(names.Intern("a.coord"), 0, 0), coord.TypeID)
	assert.True(t, coord.ID.Contains(coord.TypeID))

	x := f.Decls[1]
	assert.Equal(t, decls.DeclVar, x.Kind)
	assert.Equal(t, "coord", x.Type.String())
	assert.Equal(t, loc.NewLocation(path, 2, 5, 2, 5), spans[x.ID])
	assert.Equal(t, loc.NewLocation(path, 2, 8, 2, 12), spans[x.TypeID])

	opaque := f.Decls[2]
	assert.True(t, opaque.Type.IsEmpty())
	assert.True(t, opaque.TypeID.IsEmpty())
	assert.Equal(t, 0, opaque.ID.NumContained)
}

func TestParseSource_QualifiedReference(t *testing.T) {
	names := intern.NewTable()
	path := names.Intern("main.decl")
	f, spans, ds := decls.ParseSource(names, path, "var p: shapes.point;")
	require.Empty(t, ds)
	require.Len(t, f.Decls, 1)
	assert.Equal(t, "shapes.point", f.Decls[0].Type.String())
	assert.Equal(t, loc.NewLocation(path, 1, 8, 1, 19), spans[f.Decls[0].TypeID])
}

func TestParseSource_RecoversFromSyntaxErrors(t *testing.T) {
	names := intern.NewTable()
	path := names.Intern("a.decl")
	f, _, ds := decls.ParseSource(names, path, "var x int;\nvar y: int;\nbogus var z: bool;")
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, diag.KindSyntax, d.Kind)
	}
	assert.Equal(t, "expected ':', found 'int'", ds[0].Message)
	assert.Equal(t, 1, ds[0].Loc.FirstLine)
	assert.Equal(t, 7, ds[0].Loc.FirstColumn)
	assert.Equal(t, "expected 'var' or 'type', found 'bogus'", ds[1].Message)

	require.Len(t, f.Decls, 2)
	assert.Equal(t, "y", f.Decls[0].Name.String())
	assert.Equal(t, "z", f.Decls[1].Name.String())
}

func TestParseSource_MissingSemicolonAtEOF(t *testing.T) {
	names := intern.NewTable()
	f, _, ds := decls.ParseSource(names, names.Intern("a.decl"), "var x: int")
	require.Len(t, ds, 1)
	assert.Equal(t, "expected ';', found end of file", ds[0].Message)
	assert.Empty(t, f.Decls)
}

func TestParseSource_DuplicateNamesGetDistinctIDs(t *testing.T) {
	names := intern.NewTable()
	f, _, _ := decls.ParseSource(names, names.Intern("a.decl"), "var x: int; var x: bool; var x: int;")
	require.Len(t, f.Decls, 3)
	assert.Equal(t, "a.x", f.Decls[0].ID.Symbol.String())
	assert.Equal(t, "a.x#1", f.Decls[1].ID.Symbol.String())
	assert.Equal(t, "a.x#2", f.Decls[2].ID.Symbol.String())
	assert.Equal(t, "a", decls.ModuleOf(f.Decls[2].ID))
}

func TestModuleName(t *testing.T) {
	assert.Equal(t, "fileA", decls.ModuleName("fileA"))
	assert.Equal(t, "shapes", decls.ModuleName("src/shapes.decl"))
	assert.Equal(t, "a", decls.ModuleName("dir/a.b.decl"))
}

// A comment-only edit re-runs the parser, but the parsed file is unchanged,
// so nothing downstream of it runs again.
func TestQueries_CommentEditStopsAtParse(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"fileA", "var x: int;"})
	path := e.Intern("fileA")

	t1 := decls.Parse.Get(e, path)
	assert.Equal(t, int64(1), e.Executions(decls.Parse))
	require.Len(t, t1.Decls, 1)
	x := t1.Decls[0].ID

	ty := decls.TypeOf.Get(e, x)
	assert.Equal(t, decls.TypeBuiltin, ty.Kind)
	assert.Equal(t, "int", ty.String())
	assert.Equal(t, int64(1), e.Executions(decls.TypeOf))

	decls.Parse.Get(e, path)
	assert.Equal(t, int64(1), e.Executions(decls.Parse), "same revision must hit")

	rev := e.Revision()
	decls.SetSource(e, "fileA", "var x: int;  // comment")
	require.Greater(t, e.Revision(), rev)

	t2 := decls.Parse.Get(e, path)
	assert.Equal(t, int64(2), e.Executions(decls.Parse))
	assert.True(t, t1.Equal(t2))

	assert.Equal(t, ty, decls.TypeOf.Get(e, x))
	assert.Equal(t, int64(1), e.Executions(decls.TypeOf), "TypeOf must be verified, not re-run")
}

func TestQueries_CheckResolvesAliases(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "type coord = int;\ntype point;\nvar x: coord;\nvar p: point;\n"})

	bs, ds := decls.Check.GetWithDiagnostics(e, e.Intern("a.decl"))
	assert.Empty(t, ds)
	assert.Equal(t, []string{
		"type coord = int",
		"type point = a.point",
		"var x: int",
		"var p: a.point",
	}, rendered(bs))
	assert.Empty(t, decls.Check.CollectDiagnostics(e, e.Intern("a.decl")))
}

func TestQueries_CrossModuleReference(t *testing.T) {
	e := newEngine(t)
	load(e,
		[2]string{"shapes.decl", "type point;"},
		[2]string{"main.decl", "var p: shapes.point;\nvar q: shapes.circle;"},
	)
	main := e.Intern("main.decl")

	bs := decls.Check.Get(e, main)
	require.Len(t, bs, 2)
	assert.Equal(t, "var p: shapes.point", bs[0].String())
	assert.Equal(t, decls.ErrorType, bs[1].Type)

	ds := decls.Check.CollectDiagnostics(e, main)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeUnknownType, ds[0].Code)
	assert.Equal(t, "unknown type 'shapes.circle'", ds[0].Message)

	// Adding the missing type fixes main without editing it.
	decls.SetSource(e, "shapes.decl", "type point;\ntype circle;")
	bs = decls.Check.Get(e, main)
	assert.Equal(t, "var q: shapes.circle", bs[1].String())
	assert.Empty(t, decls.Check.CollectDiagnostics(e, main))
}

func TestQueries_Redefinition(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "var x: int;\nvar x: bool;\n"})
	path := e.Intern("a.decl")

	bs := decls.Check.Get(e, path)
	assert.Equal(t, []string{"var x: int", "var x: bool"}, rendered(bs))

	ds := decls.Check.CollectDiagnostics(e, path)
	require.Len(t, ds, 1)
	d := ds[0]
	assert.Equal(t, diag.CodeRedefinition, d.Code)
	assert.Equal(t, "a.x", d.ID.Symbol.String())
	require.Len(t, d.Notes, 1)
	assert.Equal(t, "a.x#1", d.Notes[0].ID.Symbol.String())

	scope := decls.Declarations.Get(e, path)
	assert.Equal(t, d.ID, scope.Names[e.Intern("x")])
}

func TestQueries_UnknownAndNonTypeReferences(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "var y: int;\nvar x: y;\nvar z: missing;\n"})
	path := e.Intern("a.decl")

	bs := decls.Check.Get(e, path)
	assert.Equal(t, decls.ErrorType, bs[1].Type)
	assert.Equal(t, decls.ErrorType, bs[2].Type)

	ds := decls.Check.CollectDiagnostics(e, path)
	assert.ElementsMatch(t, []diag.Code{diag.CodeGeneral, diag.CodeUnknownType}, codes(ds))
	for _, d := range ds {
		switch d.Code {
		case diag.CodeGeneral:
			assert.Equal(t, "'y' is not a type", d.Message)
			assert.Equal(t, bs[1].ID.Symbol, d.ID.Symbol)
			assert.False(t, d.ID.IsSymbol(), "addressed to the type reference")
		case diag.CodeUnknownType:
			assert.Equal(t, "unknown type 'missing'", d.Message)
		}
	}
}

func TestQueries_AliasCycle(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "type a = b;\ntype b = a;\nvar x: a;\n"})
	path := e.Intern("a.decl")

	bs := decls.Check.Get(e, path)
	require.Len(t, bs, 3)
	for _, b := range bs {
		assert.Equal(t, decls.ErrorType, b.Type, b.String())
	}

	ds := decls.Check.CollectDiagnostics(e, path)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.CodeCycle, ds[0].Code)
	assert.Equal(t, "a.a", ds[0].ID.Symbol.String())
	assert.Equal(t, int64(1), e.Stats().Cycles)

	// Breaking the cycle recovers both types.
	decls.SetSource(e, "a.decl", "type a = b;\ntype b = int;\nvar x: a;\n")
	bs = decls.Check.Get(e, path)
	assert.Equal(t, []string{"type a = int", "type b = int", "var x: int"}, rendered(bs))
	assert.Empty(t, decls.Check.CollectDiagnostics(e, path))
}

func TestQueries_SyntaxErrorsReachCheck(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "var x int;\nvar y: int;"})
	path := e.Intern("a.decl")

	assert.Equal(t, []string{"var y: int"}, rendered(decls.Check.Get(e, path)))
	ds := decls.Check.CollectDiagnostics(e, path)
	require.Len(t, ds, 1)
	assert.Equal(t, diag.KindSyntax, ds[0].Kind)
}

func TestQueries_MissingSourceAndDuplicateModules(t *testing.T) {
	e := newEngine(t)
	decls.SetSource(e, "lib/a.decl", "type t;")
	decls.SetFiles(e, "lib/a.decl", "src/a.decl")

	modules := decls.ModulePaths.Get(e, decls.Project)
	assert.Equal(t, decls.Modules{e.Intern("a"): e.Intern("lib/a.decl")}, modules)
	_, ds := decls.ModulePaths.GetWithDiagnostics(e, decls.Project)
	require.Len(t, ds, 1)
	assert.Equal(t, "module 'a' is already defined by lib/a.decl", ds[0].Message)

	_, ds = decls.Parse.GetWithDiagnostics(e, e.Intern("src/a.decl"))
	require.Len(t, ds, 1)
	assert.Equal(t, "no source for src/a.decl", ds[0].Message)
}

func TestLocator(t *testing.T) {
	e := newEngine(t)
	load(e, [2]string{"a.decl", "\n  var x: int;"})
	e.SetLocator(decls.NewLocator(e))

	f := decls.Parse.Get(e, e.Intern("a.decl"))
	l, ok := e.Locate(f.Decls[0].ID)
	require.True(t, ok)
	assert.Equal(t, "a.decl:2:7", l.String())

	_, ok = e.Locate(loc.NewID(e.Intern("nowhere.x"), -1, 0))
	assert.False(t, ok)
}

func TestQueries_PersistedSessionReusesEverything(t *testing.T) {
	files := [][2]string{
		{"shapes.decl", "type point;\ntype coord = int;"},
		{"main.decl", "var p: shapes.point;\nvar c: shapes.coord;\nvar c: bool;"},
	}

	e1 := newEngine(t)
	load(e1, files...)
	want := rendered(decls.Check.Get(e1, e1.Intern("main.decl")))
	wantDiags := decls.Check.CollectDiagnostics(e1, e1.Intern("main.decl"))
	require.Len(t, wantDiags, 1)

	var buf bytes.Buffer
	_, err := e1.SaveCache(&buf)
	require.NoError(t, err)

	e2 := newEngine(t)
	_, err = e2.LoadCache(&buf)
	require.NoError(t, err)
	load(e2, files...)

	assert.Equal(t, want, rendered(decls.Check.Get(e2, e2.Intern("main.decl"))))
	got := decls.Check.CollectDiagnostics(e2, e2.Intern("main.decl"))
	require.Len(t, got, 1)
	assert.Equal(t, wantDiags[0].Message, got[0].Message)
	assert.Equal(t, int64(0), e2.Stats().Executions)
}
