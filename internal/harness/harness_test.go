package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MinimalScenario(t *testing.T) {
	scenario, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)

	ev := result.Trace[0]
	assert.Equal(t, "check", ev.Step)
	assert.Equal(t, "harness-1", ev.Session)
	assert.Equal(t, []string{"a.decl"}, ev.Checked, "no check list means every file")
	assert.Equal(t, []string{"var x: int"}, ev.Bindings["a.decl"])
	assert.Equal(t, int64(1), ev.Executed["decls.check"])
	assert.Zero(t, ev.Errors)
	assert.Empty(t, ev.Diagnostics)
}

func TestRun_TestdataScenariosPass(t *testing.T) {
	for _, name := range []string{"alias_edit", "unknown_type"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Flow))
		})
	}
}

func TestRun_RestartDrawsNewSession(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: restart
description: "Restarting reuses the cache"
session: r
setup:
  files: [a.decl]
  sources:
    a.decl: "type t = bool;\nvar x: t;"
flow:
  - step: first
  - step: second
    restart: true
    expect:
      executions: {}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "r-1", result.Trace[0].Session)
	assert.Equal(t, "r-2", result.Trace[1].Session)
	assert.True(t, result.Trace[1].Restarted)
	assert.Equal(t, result.Trace[0].Bindings, result.Trace[1].Bindings)
}

func TestRun_CrossModuleEditThroughFileList(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: cross_module
description: "A type added to another module fixes the referring file"
setup:
  files: [main.decl]
  sources:
    main.decl: "var p: shapes.point;"
    shapes.decl: "type point;"
flow:
  - step: shapes not listed
    expect:
      errors: 1
      codes: [UnknownType]
      bindings:
        main.decl: ["var p: <error>"]
  - step: list shapes
    files: [shapes.decl, main.decl]
    check: [main.decl]
    expect:
      errors: 0
      bindings:
        main.decl: ["var p: shapes.point"]
assertions:
  - type: diagnostic
    code: UnknownType
    count: 1
  - type: binding
    file: main.decl
    binding: "var p: shapes.point"
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, []string{"main.decl:1:8: error: unknown type 'shapes.point'"}, result.Trace[0].Diagnostics)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatch
description: "Wrong expectations are reported, not fatal"
setup:
  files: [a.decl]
  sources:
    a.decl: "var x: int;"
flow:
  - step: check
    expect:
      errors: 2
      executions: {}
      bindings:
        a.decl: ["var x: bool"]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "expected 2 errors, got 0")
	assert.Contains(t, result.Errors[1], "expected executions none")
	assert.Contains(t, result.Errors[2], `a.decl: expected bindings ["var x: bool"], got ["var x: int"]`)
}

func TestRun_SyntaxErrorsAreReported(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: syntax
description: "Syntax errors come from the parser"
setup:
  files: [a.decl]
  sources:
    a.decl: "bogus x;"
flow:
  - step: check
    expect:
      errors: 1
      codes: [Syntax]
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace[0].Diagnostics, 1)
	assert.Contains(t, result.Trace[0].Diagnostics[0], "a.decl:1:1: syntax error:")
}
