package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{
			Step:     "first",
			Executed: map[string]int64{"decls.parse": 1, "decls.check": 1},
			Checked:  []string{"a.decl"},
			Bindings: map[string][]string{"a.decl": {"var x: <error>"}},
			Codes:    []string{"UnknownType"},
			Errors:   1,
		},
		{
			Step:     "second",
			Executed: map[string]int64{"decls.parse": 1},
			Checked:  []string{"b.decl"},
			Bindings: map[string][]string{"b.decl": {"type t = int"}},
		},
		{
			Step:     "third",
			Executed: map[string]int64{},
			Checked:  []string{"a.decl"},
			Bindings: map[string][]string{"a.decl": {"type nope = a.nope", "var x: a.nope"}},
		},
	}
}

func TestAssertExecutions_SumsSteps(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertExecutions(trace, Assertion{Type: AssertExecutions, Query: "decls.parse", Count: 2}))
	assert.NoError(t, assertExecutions(trace, Assertion{Type: AssertExecutions, Query: "decls.typeOf", Count: 0}))

	err := assertExecutions(trace, Assertion{Type: AssertExecutions, Query: "decls.check", Count: 2})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "decls.check executed 2 times", ae.Expected)
	assert.Equal(t, "decls.check executed 1 times", ae.Actual)
}

func TestAssertDiagnostic_CountsCodes(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertDiagnostic(trace, Assertion{Type: AssertDiagnostic, Code: "UnknownType", Count: 1}))
	assert.NoError(t, assertDiagnostic(trace, Assertion{Type: AssertDiagnostic, Code: "Syntax", Count: 0}))
	assert.Error(t, assertDiagnostic(trace, Assertion{Type: AssertDiagnostic, Code: "UnknownType", Count: 2}))
}

func TestAssertBinding_UsesLastCheck(t *testing.T) {
	trace := sampleTrace()
	assert.NoError(t, assertBinding(trace, Assertion{Type: AssertBinding, File: "a.decl", Binding: "var x: a.nope"}))
	assert.NoError(t, assertBinding(trace, Assertion{Type: AssertBinding, File: "b.decl", Binding: "type t = int"}))

	err := assertBinding(trace, Assertion{Type: AssertBinding, File: "a.decl", Binding: "var x: <error>"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `in step "third"`)
}

func TestAssertBinding_NeverChecked(t *testing.T) {
	err := assertBinding(sampleTrace(), Assertion{Type: AssertBinding, File: "c.decl", Binding: "var y: int"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c.decl was never checked")
}

func TestEvaluateAssertions_AllPass(t *testing.T) {
	result := &Result{Pass: true, Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertExecutions, Query: "decls.parse", Count: 2},
		{Type: AssertDiagnostic, Code: "UnknownType", Count: 1},
		{Type: AssertBinding, File: "b.decl", Binding: "type t = int"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_SomeFail(t *testing.T) {
	result := &Result{Pass: true, Trace: sampleTrace()}
	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertExecutions, Query: "decls.parse", Count: 2},
		{Type: AssertExecutions, Query: "decls.parse", Count: 5},
		{Type: AssertDiagnostic, Code: "Redefinition", Count: 1},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "assertion 1:")
	assert.Contains(t, errs[1], "assertion 2:")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(&Result{}, []Assertion{{Type: "final_state"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "final_state"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertExecutions,
		Expected: "decls.parse executed 1 times",
		Actual:   "decls.parse executed 2 times",
		Trace:    sampleTrace()[:2],
	}
	want := "Assertion failed: executions\n" +
		"  Expected: decls.parse executed 1 times\n" +
		"  Actual: decls.parse executed 2 times\n" +
		"\nFull trace:\n" +
		"  [1] first executed decls.check=1 decls.parse=1\n" +
		"  [2] second executed decls.parse=1\n"
	assert.Equal(t, want, err.Error())
}

func TestCheckExpect(t *testing.T) {
	ev := sampleTrace()[0]
	one, zero := 1, 0

	assert.Empty(t, checkExpect(&ExpectClause{
		Errors:     &one,
		Warnings:   &zero,
		Codes:      []string{"UnknownType"},
		Executions: map[string]int64{"decls.check": 1, "decls.parse": 1},
		Bindings:   map[string][]string{"a.decl": {"var x: <error>"}},
	}, ev))

	errs := checkExpect(&ExpectClause{
		Codes:    []string{},
		Bindings: map[string][]string{"z.decl": nil},
	}, ev)
	assert.Equal(t, []string{
		`expected codes [], got ["UnknownType"]`,
		"z.decl was not checked",
	}, errs)
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "none", formatCounts(nil))
	assert.Equal(t, "a=1 b=2", formatCounts(map[string]int64{"b": 2, "a": 1}))
}
