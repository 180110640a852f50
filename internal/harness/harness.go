package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/incr/internal/decls"
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/report"
	"github.com/roach88/incr/internal/testutil"
)

// DefaultSession is the session prefix of scenarios that name none.
const DefaultSession = "harness"

// Harness is the scenario execution engine. It owns one engine at a time
// and the inputs needed to rebuild it.
type Harness struct {
	engine   *engine.Engine
	sessions *testutil.SessionSequence
	logger   *slog.Logger

	files   []string
	sources map[string]string
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh engine with deterministic session
// ids.
//
// Execution flow:
// 1. Create the engine and set the setup inputs
// 2. Execute the flow steps, validating each expect clause
// 3. Evaluate the assertions against the trace
func Run(scenario *Scenario) (*Result, error) {
	prefix := scenario.Session
	if prefix == "" {
		prefix = DefaultSession
	}

	h := &Harness{
		sessions: testutil.NewSessionSequence(prefix),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		files:    slices.Clone(scenario.Setup.Files),
		sources:  maps.Clone(scenario.Setup.Sources),
	}
	if h.sources == nil {
		h.sources = make(map[string]string)
	}
	h.engine = h.newEngine()
	defer func() { h.engine.Close() }()
	h.setInputs()

	result := NewResult()
	for i, step := range scenario.Flow {
		ev, err := h.executeStep(step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %q: %w", i, step.Step, err)
		}
		result.AddStep(ev)
		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, ev) {
				result.AddError(fmt.Sprintf("step %q: %s", step.Step, msg))
			}
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) newEngine() *engine.Engine {
	e := engine.New(
		engine.WithLogger(h.logger),
		engine.WithSessionGenerator(h.sessions),
		engine.WithGCPolicy(engine.GCExplicit),
		engine.WithQueries(decls.Kinds()...),
	)
	e.SetLocator(decls.NewLocator(e))
	return e
}

// setInputs writes every source, in path order, then the file list.
func (h *Harness) setInputs() {
	for _, path := range slices.Sorted(maps.Keys(h.sources)) {
		decls.SetSource(h.engine, path, h.sources[path])
	}
	decls.SetFiles(h.engine, h.files...)
}

// restart saves the cache, replaces the engine with a fresh one loaded
// from it and sets the inputs again.
func (h *Harness) restart() error {
	var buf bytes.Buffer
	if _, err := h.engine.SaveCache(&buf); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	h.engine.Close()

	h.engine = h.newEngine()
	if _, err := h.engine.LoadCache(&buf); err != nil {
		return fmt.Errorf("failed to load cache: %w", err)
	}
	h.setInputs()
	return nil
}

// executeStep applies a step's edits, checks its files and records the
// outcome.
func (h *Harness) executeStep(step FlowStep) (TraceEvent, error) {
	if step.Restart {
		if err := h.restart(); err != nil {
			return TraceEvent{}, err
		}
	}
	if step.Files != nil {
		h.files = slices.Clone(step.Files)
		decls.SetFiles(h.engine, h.files...)
	}
	for _, path := range slices.Sorted(maps.Keys(step.Edit)) {
		h.sources[path] = step.Edit[path]
		decls.SetSource(h.engine, path, step.Edit[path])
	}

	checked := step.Check
	if len(checked) == 0 {
		checked = h.files
	}

	e := h.engine
	ev := TraceEvent{
		Step:      step.Step,
		Session:   e.SessionID(),
		Restarted: step.Restart,
		Checked:   slices.Clone(checked),
		Bindings:  make(map[string][]string, len(checked)),
	}

	before := e.Snapshot().Executed
	bag := diag.NewBag()
	for _, path := range checked {
		name := e.Intern(path)
		ev.Bindings[path] = render(decls.Check.Get(e, name))
		bag.AddAll(decls.Check.CollectDiagnostics(e, name))
	}
	ev.Executed = delta(before, e.Snapshot().Executed)

	// Rendering resolves locations through queries, so it runs after the
	// execution counts are taken.
	var out bytes.Buffer
	w := report.NewWriter(&out, report.Brief, report.WithLocator(decls.NewLocator(e)))
	ds := bag.All()
	if err := w.WriteAll(ds); err != nil {
		return TraceEvent{}, fmt.Errorf("failed to render diagnostics: %w", err)
	}
	ev.Errors, ev.Warnings = w.Counts()
	for _, d := range ds {
		ev.Codes = append(ev.Codes, d.Code.String())
	}
	if text := strings.TrimSuffix(out.String(), "\n"); text != "" {
		ev.Diagnostics = strings.Split(text, "\n")
	}
	return ev, nil
}

func render(bs decls.Bindings) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.String()
	}
	return out
}

// delta returns the per-kind growth from before to after, omitting kinds
// that did not grow.
func delta(before, after map[string]int64) map[string]int64 {
	out := make(map[string]int64)
	for kind, n := range after {
		if d := n - before[kind]; d > 0 {
			out[kind] = d
		}
	}
	return out
}
