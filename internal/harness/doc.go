// Package harness runs scripted edit-and-check scenarios against the
// incremental engine and the decls front end.
//
// A scenario is a YAML file. It seeds a project, then walks a flow of
// steps; each step may edit sources, replace the file list or restart the
// engine from its saved cache, and then checks files. The harness records
// what every step re-executed, the bindings it produced and the
// diagnostics it reported, and validates them against the step's expect
// clause and the scenario's assertions.
//
// # Scenario Format
//
//	name: alias_edit
//	description: "Editing an alias re-checks only what depends on it"
//	session: harness
//	setup:
//	  files: [a.decl]
//	  sources:
//	    a.decl: |
//	      type t = int;
//	      var x: t;
//	flow:
//	  - step: initial
//	    check: [a.decl]
//	    expect:
//	      errors: 0
//	      executions: { decls.parse: 1 }
//	      bindings:
//	        a.decl: ["type t = int", "var x: int"]
//	  - step: comment edit
//	    edit:
//	      a.decl: |
//	        // units
//	        type t = int;
//	        var x: t;
//	    expect:
//	      executions: { decls.parse: 1 }
//	  - step: reload
//	    restart: true
//	    expect:
//	      executions: {}
//	assertions:
//	  - type: executions
//	    query: decls.typeOf
//	    count: 2
//	  - type: diagnostic
//	    code: UnknownType
//	    count: 0
//	  - type: binding
//	    file: a.decl
//	    binding: "var x: int"
//
// A step without check checks every file in the current list. The
// executions of an expect clause are exact: every query kind not named
// must not have executed during the step. Restarting saves the cache,
// opens a fresh engine, loads the cache and sets every input again.
//
// # Assertion Types
//
//   - executions: a query kind executed exactly count times over the run
//   - diagnostic: diagnostics with a code were reported count times over the run
//   - binding: the last check of a file produced the binding
//
// # Deterministic Testing
//
// Session ids come from testutil.SessionSequence and map iteration is
// always sorted, so identical scenarios produce identical traces. Use
// RunWithGolden to compare a trace against testdata/golden.
package harness
