package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of edits and checks.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Session is the prefix of the engine session ids. Defaults to "harness".
	Session string `yaml:"session,omitempty"`

	// Setup seeds the project before the first step.
	Setup Setup `yaml:"setup"`

	// Flow is the main sequence of steps.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the whole trace after the flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Setup is the initial project.
type Setup struct {
	// Files is the project's file list, in check order.
	Files []string `yaml:"files"`

	// Sources maps each path to its text.
	Sources map[string]string `yaml:"sources"`
}

// FlowStep is one edit-and-check round.
type FlowStep struct {
	// Step names the step in traces and errors.
	Step string `yaml:"step"`

	// Restart reopens the engine from its saved cache before anything else.
	Restart bool `yaml:"restart,omitempty"`

	// Files replaces the file list.
	Files []string `yaml:"files,omitempty"`

	// Edit replaces the text of the named files.
	Edit map[string]string `yaml:"edit,omitempty"`

	// Check lists the files to check. Empty means every listed file.
	Check []string `yaml:"check,omitempty"`

	// Expect validates the step. Nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies what a step must produce. Nil fields are not
// checked.
type ExpectClause struct {
	// Errors is the number of error diagnostics.
	Errors *int `yaml:"errors,omitempty"`

	// Warnings is the number of warning diagnostics.
	Warnings *int `yaml:"warnings,omitempty"`

	// Codes are the diagnostic codes, in report order.
	Codes []string `yaml:"codes,omitempty"`

	// Executions maps query kinds to how often each executed during the
	// step. Kinds not named must not have executed. An empty map asserts
	// that nothing executed.
	Executions map[string]int64 `yaml:"executions,omitempty"`

	// Bindings maps checked files to their rendered bindings.
	Bindings map[string][]string `yaml:"bindings,omitempty"`
}

// Assertion validates the trace as a whole.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	// Query is the query kind name (executions).
	Query string `yaml:"query,omitempty"`

	// Code is the diagnostic code (diagnostic).
	Code string `yaml:"code,omitempty"`

	// File is the checked file (binding).
	File string `yaml:"file,omitempty"`

	// Binding is the rendered binding expected in the file (binding).
	Binding string `yaml:"binding,omitempty"`

	// Count is the expected number of occurrences (executions, diagnostic).
	Count int64 `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertExecutions = "executions"
	AssertDiagnostic = "diagnostic"
	AssertBinding    = "binding"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is incomplete.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Setup.Files) == 0 {
		return fmt.Errorf("setup.files is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Step == "" {
			return fmt.Errorf("flow[%d]: step name is required", i)
		}
		if step.Expect == nil {
			continue
		}
		for path := range step.Expect.Bindings {
			if step.Check != nil && !slices.Contains(step.Check, path) {
				return fmt.Errorf("flow[%d].expect: bindings for %s, which the step does not check", i, path)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertExecutions:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for executions", index)
		}
	case AssertDiagnostic:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for diagnostic", index)
		}
	case AssertBinding:
		if a.File == "" || a.Binding == "" {
			return fmt.Errorf("assertions[%d]: file and binding are required for binding", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
