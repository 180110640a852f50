package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTrace renders a trace as the text stored in golden files.
func FormatTrace(scenarioName string, trace []TraceEvent) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)
	for i, ev := range trace {
		fmt.Fprintf(&buf, "\nstep %d: %s", i+1, ev.Step)
		if ev.Restarted {
			buf.WriteString(" (restarted)")
		}
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "  session: %s\n", ev.Session)
		fmt.Fprintf(&buf, "  executed: %s\n", formatCounts(ev.Executed))
		for _, path := range ev.Checked {
			bs := ev.Bindings[path]
			if len(bs) == 0 {
				fmt.Fprintf(&buf, "  %s: no declarations\n", path)
				continue
			}
			fmt.Fprintf(&buf, "  %s:\n", path)
			for _, b := range bs {
				fmt.Fprintf(&buf, "    %s\n", b)
			}
		}
		if len(ev.Diagnostics) > 0 {
			buf.WriteString("  diagnostics:\n")
			for _, line := range ev.Diagnostics {
				fmt.Fprintf(&buf, "    %s\n", line)
			}
		}
		fmt.Fprintf(&buf, "  %s, %s\n", plural(ev.Errors, "error"), plural(ev.Warnings, "warning"))
	}
	return buf.Bytes()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can inspect Pass and Errors; returns an
// error if the scenario could not be executed.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, FormatTrace(scenarioName, result.Trace))
}
