package harness

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s executed %s\n", i+1, event.Step, formatCounts(event.Executed))
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against the result's trace and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertExecutions:
			err = assertExecutions(result.Trace, a)
		case AssertDiagnostic:
			err = assertDiagnostic(result.Trace, a)
		case AssertBinding:
			err = assertBinding(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errors
}

// assertExecutions checks the total executions of a query kind over the
// whole trace.
func assertExecutions(trace []TraceEvent, a Assertion) error {
	var total int64
	for _, ev := range trace {
		total += ev.Executed[a.Query]
	}
	if total != a.Count {
		return &AssertionError{
			Type:     AssertExecutions,
			Expected: fmt.Sprintf("%s executed %d times", a.Query, a.Count),
			Actual:   fmt.Sprintf("%s executed %d times", a.Query, total),
			Trace:    trace,
		}
	}
	return nil
}

// assertDiagnostic checks how often a diagnostic code was reported over the
// whole trace.
func assertDiagnostic(trace []TraceEvent, a Assertion) error {
	var total int64
	for _, ev := range trace {
		for _, c := range ev.Codes {
			if c == a.Code {
				total++
			}
		}
	}
	if total != a.Count {
		return &AssertionError{
			Type:     AssertDiagnostic,
			Expected: fmt.Sprintf("%s reported %d times", a.Code, a.Count),
			Actual:   fmt.Sprintf("%s reported %d times", a.Code, total),
			Trace:    trace,
		}
	}
	return nil
}

// assertBinding checks the bindings of the last step that checked the file.
func assertBinding(trace []TraceEvent, a Assertion) error {
	for i := len(trace) - 1; i >= 0; i-- {
		bs, ok := trace[i].Bindings[a.File]
		if !ok {
			continue
		}
		if slices.Contains(bs, a.Binding) {
			return nil
		}
		return &AssertionError{
			Type:     AssertBinding,
			Expected: fmt.Sprintf("%s binds %q", a.File, a.Binding),
			Actual:   fmt.Sprintf("%s binds %s in step %q", a.File, formatList(bs), trace[i].Step),
			Trace:    trace,
		}
	}
	return &AssertionError{
		Type:     AssertBinding,
		Expected: fmt.Sprintf("%s binds %q", a.File, a.Binding),
		Actual:   fmt.Sprintf("%s was never checked", a.File),
		Trace:    trace,
	}
}

// checkExpect compares one step's outcome against its expect clause.
func checkExpect(x *ExpectClause, ev TraceEvent) []string {
	var errs []string
	if x.Errors != nil && *x.Errors != ev.Errors {
		errs = append(errs, fmt.Sprintf("expected %d errors, got %d", *x.Errors, ev.Errors))
	}
	if x.Warnings != nil && *x.Warnings != ev.Warnings {
		errs = append(errs, fmt.Sprintf("expected %d warnings, got %d", *x.Warnings, ev.Warnings))
	}
	if x.Codes != nil && !slices.Equal(x.Codes, ev.Codes) {
		errs = append(errs, fmt.Sprintf("expected codes %s, got %s", formatList(x.Codes), formatList(ev.Codes)))
	}
	if x.Executions != nil && !maps.Equal(x.Executions, ev.Executed) {
		errs = append(errs, fmt.Sprintf("expected executions %s, got %s",
			formatCounts(x.Executions), formatCounts(ev.Executed)))
	}
	for _, path := range slices.Sorted(maps.Keys(x.Bindings)) {
		want := x.Bindings[path]
		got, ok := ev.Bindings[path]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s was not checked", path))
			continue
		}
		if !slices.Equal(want, got) {
			errs = append(errs, fmt.Sprintf("%s: expected bindings %s, got %s", path, formatList(want), formatList(got)))
		}
	}
	return errs
}

// formatCounts renders counts as "a=1 b=2" in key order, or "none".
func formatCounts(counts map[string]int64) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, " ")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
