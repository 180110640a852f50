package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/intern"
	"github.com/roach88/incr/internal/loc"
)

const source = "var x: missing;\nvar x: int;\nbogus\n"

type fixture struct {
	names   *intern.Table
	locator engine.Locator
	sources SourceFunc
	diags   []diag.Diagnostic
}

func newFixture() *fixture {
	names := intern.NewTable()
	path := names.Intern("a.decl")
	idX := loc.NewID(names.Intern("a.x"), -1, 1)
	idRef := loc.NewID(names.Intern("a.x"), 0, 0)
	idX1 := loc.NewID(names.Intern("a.x#1"), -1, 1)

	spans := map[loc.ID]loc.Location{
		idX:   loc.NewLocation(path, 1, 5, 1, 5),
		idRef: loc.NewLocation(path, 1, 8, 1, 14),
		idX1:  loc.NewLocation(path, 2, 5, 2, 5),
	}
	return &fixture{
		names: names,
		locator: engine.LocatorFunc(func(id loc.ID) (loc.Location, bool) {
			l, ok := spans[id]
			return l, ok
		}),
		sources: func(p string) (string, bool) {
			return source, p == "a.decl"
		},
		diags: []diag.Diagnostic{
			diag.UnknownType(idRef, names.Intern("missing")),
			diag.Redefinition(names.Intern("x"), idX, []loc.ID{idX1}),
			diag.Syntaxf(loc.NewLocation(path, 3, 1, 3, 5), "expected 'var' or 'type', found 'bogus'"),
			diag.Warningf(loc.NewID(names.Intern("nowhere.y"), -1, 0), "unused declaration"),
		},
	}
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestWriter_BriefGolden(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	w := NewWriter(&buf, Brief, WithLocator(f.locator))
	require.NoError(t, w.WriteAll(f.diags))
	require.NoError(t, w.Summary())

	golden(t).Assert(t, "brief", buf.Bytes())
}

func TestWriter_DetailedGolden(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	w := NewWriter(&buf, Detailed, WithLocator(f.locator), WithSource(f.sources))
	require.NoError(t, w.WriteAll(f.diags))
	require.NoError(t, w.Summary())

	golden(t).Assert(t, "detailed", buf.Bytes())
}

func TestMarshalJSON_Golden(t *testing.T) {
	f := newFixture()
	data, err := MarshalJSON(f.diags, f.locator)
	require.NoError(t, err)

	golden(t).Assert(t, "diagnostics", data)
}

func TestWriter_Counts(t *testing.T) {
	f := newFixture()
	w := NewWriter(&bytes.Buffer{}, Brief)
	require.NoError(t, w.WriteAll(f.diags))

	errs, warnings := w.Counts()
	assert.Equal(t, 3, errs)
	assert.Equal(t, 1, warnings)
}

func TestWriter_WithoutLocatorPrintsIDs(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, Brief).Write(f.diags[0]))
	assert.Equal(t, "a.x@0: error: unknown type 'missing'\n", buf.String())
}

func TestWriter_DetailedWithoutSource(t *testing.T) {
	f := newFixture()
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, Detailed, WithLocator(f.locator)).Write(f.diags[0]))
	assert.Equal(t, "--- error in a.decl:1:8 [UnknownType] ---\n  unknown type 'missing'\n\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWriter_KeepsFirstError(t *testing.T) {
	f := newFixture()
	w := NewWriter(failingWriter{}, Brief)
	err := w.WriteAll(f.diags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, err, w.Summary())
}

func TestFlatten(t *testing.T) {
	f := newFixture()

	flat := Flatten(f.diags[1], f.locator)
	assert.Equal(t, "a.decl:1:5", flat.Location.String())
	assert.Equal(t, "'x' has multiple definitions", flat.Message)
	require.Len(t, flat.Notes, 1)
	assert.Equal(t, "a.decl:2:5", flat.Notes[0].Location.String())
	assert.Equal(t, "redefined here", flat.Notes[0].Message)

	// Diagnostics addressed by location keep it.
	flat = Flatten(f.diags[2], nil)
	assert.Equal(t, f.diags[2].Loc, flat.Location)
	assert.Empty(t, flat.Notes)

	// An ID the locator cannot place has no location.
	flat = Flatten(f.diags[3], f.locator)
	assert.True(t, flat.Location.IsEmpty())
}

func TestRecords_NormalizesAndSkipsHTMLEscaping(t *testing.T) {
	names := intern.NewTable()
	d := diag.ErrorAtf(loc.NewLocation(names.Intern("f.decl"), 1, 1, 1, 1), "café <x> & y")

	data, err := MarshalJSON([]diag.Diagnostic{d}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\"message\": \"café <x> & y\"")

	assert.Equal(t, "[]\n", string(mustJSON(t, nil)))
}

func mustJSON(t *testing.T, ds []diag.Diagnostic) []byte {
	t.Helper()
	data, err := MarshalJSON(ds, nil)
	require.NoError(t, err)
	return data
}

func TestParseMode(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Mode
	}{
		{"", Brief},
		{"brief", Brief},
		{"detailed", Detailed},
	} {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		if tt.in != "" {
			assert.Equal(t, tt.in, got.String())
		}
	}

	_, err := ParseMode("verbose")
	assert.Error(t, err)
}
