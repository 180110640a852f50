package engine

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSessionID("test-session"),
	}
	e := New(append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

// calls counts body executions per query name.
type calls map[string]int

// pipeline is the three-stage chain source -> normalize -> measure used by
// the propagation tests. normalize drops spaces so that whitespace-only
// edits leave its result unchanged.
type pipeline struct {
	source    *Input[string, string]
	normalize *Query[string, string]
	measure   *Query[string, int]
	calls     calls
}

func newPipeline() *pipeline {
	p := &pipeline{calls: calls{}}
	p.source = NewInput[string, string]("source")
	p.normalize = NewQuery("normalize", func(e *Engine, file string) string {
		p.calls["normalize"]++
		return strings.ReplaceAll(p.source.Get(e, file), " ", "")
	})
	p.measure = NewQuery("measure", func(e *Engine, file string) int {
		p.calls["measure"]++
		return len(p.normalize.Get(e, file))
	})
	return p
}

// checkInvariants asserts changedAt <= verifiedAt for every entry.
func checkInvariants(t *testing.T, e *Engine) {
	t.Helper()
	for _, k := range e.Kinds() {
		for _, s := range e.tables[k].slots() {
			n := s.base()
			if !n.hasValue {
				continue
			}
			require.LessOrEqual(t, n.changedAt, n.verifiedAt, "entry %s", s.describe())
			require.Equal(t, stateIdle, n.state, "entry %s left on the stack", s.describe())
		}
	}
	require.Empty(t, e.stack, "evaluation stack must be empty between calls")
}

// recoverFatal runs fn and returns the *FatalError it panicked with.
func recoverFatal(t *testing.T, fn func()) (fe *FatalError) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		fe, ok = r.(*FatalError)
		require.True(t, ok, "panic value %T is not *FatalError", r)
	}()
	fn()
	return nil
}
