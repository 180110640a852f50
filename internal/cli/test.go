package cli

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/incr/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
	Golden string // golden file directory; defaults to golden/ beside each scenario
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run edit-and-check scenarios",
		Long: `Run harness scenarios against the engine and the decls front end.

Executes every scenario file in the directory, validating each step's
expectations and the scenario's assertions. A scenario with a golden file
in <scenarios-dir>/golden (or --golden) must also reproduce it exactly.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  incr test ./scenarios
  incr test ./scenarios --filter "alias_*"
  incr test ./scenarios --update
  incr test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden file directory (default <scenario dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, f := range files {
		sr := runScenario(f, opts, cmd)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	switch {
	case opts.Format == "json":
		return outputTestJSON(opts, cmd, result)
	case len(files) == 0:
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	default:
		return outputTestText(cmd, result)
	}
}

// findScenarioFiles returns the .yaml and .yml files under dir whose base
// name matches filter, skipping golden directories.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(d.Name(), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// scenarioReporter prints per-scenario lines in text mode and builds the
// ScenarioResult either way.
type scenarioReporter struct {
	w    io.Writer
	text bool
}

func (r scenarioReporter) pass(name, note string) ScenarioResult {
	if r.text {
		if note != "" {
			fmt.Fprintf(r.w, "✓ %s (%s)\n", name, note)
		} else {
			fmt.Fprintf(r.w, "✓ %s\n", name)
		}
	}
	return ScenarioResult{Name: name, Pass: true}
}

// fail reports a failed scenario. lines are printed under the name; errs
// go into the result, and default to lines.
func (r scenarioReporter) fail(name string, lines []string, errs ...string) ScenarioResult {
	if r.text {
		fmt.Fprintf(r.w, "✗ %s\n", name)
		for _, l := range lines {
			fmt.Fprintf(r.w, "  %s\n", l)
		}
	}
	if len(errs) == 0 {
		errs = lines
	}
	return ScenarioResult{Name: name, Pass: false, Errors: errs}
}

// runScenario executes one scenario file. The scenario must pass its own
// expectations and assertions and, when a golden file exists, reproduce it.
// With --update the golden file is rewritten instead of compared.
func runScenario(scenarioFile string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	r := scenarioReporter{w: cmd.OutOrStdout(), text: opts.Format != "json"}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return r.fail(filepath.Base(scenarioFile),
			[]string{fmt.Sprintf("Load error: %v", err)},
			fmt.Sprintf("failed to load scenario: %v", err))
	}
	name := scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return r.fail(name,
			[]string{fmt.Sprintf("Execution error: %v", err)},
			fmt.Sprintf("execution failed: %v", err))
	}

	goldenPath := goldenFilePath(scenarioFile, opts.Golden)
	if opts.Update {
		if err := updateGoldenFile(scenario, result, goldenPath); err != nil {
			return r.fail(name,
				[]string{fmt.Sprintf("Golden update error: %v", err)},
				fmt.Sprintf("failed to update golden file: %v", err))
		}
		return r.pass(name, "golden updated")
	}

	if _, err := os.Stat(goldenPath); err == nil {
		match, err := compareWithGolden(scenario, result, goldenPath)
		if err != nil {
			return r.fail(name,
				[]string{fmt.Sprintf("Golden comparison error: %v", err)},
				fmt.Sprintf("golden comparison failed: %v", err))
		}
		if !match {
			return r.fail(name,
				[]string{"Golden file mismatch (run with --update to regenerate)"},
				"trace does not match golden file")
		}
	}

	if !result.Pass {
		return r.fail(name, result.Errors)
	}
	return r.pass(name, "")
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile, goldenDir string) string {
	if goldenDir == "" {
		goldenDir = filepath.Join(filepath.Dir(scenarioFile), "golden")
	}
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(goldenDir, name+".golden")
}

// updateGoldenFile writes the current trace as the golden file.
func updateGoldenFile(scenario *harness.Scenario, result *harness.Result, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data := harness.FormatTrace(scenario.Name, result.Trace)
	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the result trace against the golden file.
func compareWithGolden(scenario *harness.Scenario, result *harness.Result, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(goldenData, harness.FormatTrace(scenario.Name, result.Trace)), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(opts *TestOptions, cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	out := formatterFor(opts.RootOptions, cmd)
	if err := out.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
