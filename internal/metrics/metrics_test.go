package metrics

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/incr/internal/engine"
)

func testSnapshot() engine.Snapshot {
	return engine.Snapshot{
		Stats: engine.Stats{
			Hits:          5,
			Executions:    3,
			Verifications: 2,
			Cycles:        1,
			EntriesLoaded: 4,
		},
		Revision: 7,
		Entries:  6,
		Names:    11,
		Kinds:    map[string]int{"parse": 2, "source": 2, "typeOf": 2},
		Executed: map[string]int64{"typeOf": 1, "parse": 2},
	}
}

func TestCollector_NothingObserved(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()
	c.Observe(testSnapshot())

	expected := `
# HELP incr_engine_executions_total Query bodies run.
# TYPE incr_engine_executions_total counter
incr_engine_executions_total 3
# HELP incr_engine_hits_total Reads answered without running a query body.
# TYPE incr_engine_hits_total counter
incr_engine_hits_total 5
# HELP incr_engine_cycles_total Detected query cycles.
# TYPE incr_engine_cycles_total counter
incr_engine_cycles_total 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"incr_engine_executions_total", "incr_engine_hits_total", "incr_engine_cycles_total")
	require.NoError(t, err)
}

func TestCollector_PerKind(t *testing.T) {
	c := NewCollector()
	c.Observe(testSnapshot())

	expected := `
# HELP incr_engine_kind_executions_total Query bodies run per kind.
# TYPE incr_engine_kind_executions_total counter
incr_engine_kind_executions_total{kind="parse"} 2
incr_engine_kind_executions_total{kind="typeOf"} 1
# HELP incr_engine_kind_entries Cached entries per kind.
# TYPE incr_engine_kind_entries gauge
incr_engine_kind_entries{kind="parse"} 2
incr_engine_kind_entries{kind="source"} 2
incr_engine_kind_entries{kind="typeOf"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"incr_engine_kind_executions_total", "incr_engine_kind_entries")
	require.NoError(t, err)
}

func TestCollector_Count(t *testing.T) {
	c := NewCollector()
	c.Observe(testSnapshot())
	// 11 scalar metrics, 3 kind gauges and 2 kind counters.
	assert.Equal(t, 16, testutil.CollectAndCount(c))
}

func TestCollector_LintClean(t *testing.T) {
	c := NewCollector()
	c.Observe(testSnapshot())
	problems, err := testutil.CollectAndLint(c)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestCollector_ObservesLiveEngine(t *testing.T) {
	e := engine.New(engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(e.Close)

	src := engine.NewInput[string, string]("src")
	size := engine.NewQuery("size", func(e *engine.Engine, k string) int {
		return len(src.Get(e, k))
	})
	src.Set(e, "a", "hello")
	size.Get(e, "a")
	size.Get(e, "a")

	c := NewCollector()
	c.Observe(e.Snapshot())

	expected := `
# HELP incr_engine_kind_executions_total Query bodies run per kind.
# TYPE incr_engine_kind_executions_total counter
incr_engine_kind_executions_total{kind="size"} 1
# HELP incr_engine_hits_total Reads answered without running a query body.
# TYPE incr_engine_hits_total counter
incr_engine_hits_total 1
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"incr_engine_kind_executions_total", "incr_engine_hits_total"))
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	c := NewCollector()
	require.NoError(t, reg.Register(c))
	c.Observe(testSnapshot())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "# TYPE incr_engine_revision gauge\nincr_engine_revision 7\n")
	assert.Contains(t, out, `incr_engine_kind_entries{kind="source"} 2`)
}
