// Package decls is a small declaration language built on the query engine.
//
// It exists to drive the engine end to end: sources are inputs, and parsing,
// scoping, name resolution and typing are queries whose results are
// memoized, verified and persisted. A file holds declarations such as:
//
//	type point;
//	type coord = int;
//	var origin: point;   // comments run to end of line
//	var x: coord;
//
// Every file is a module named after its base name without extension.
// Declarations are addressed by loc.ID values whose symbol is
// "module.name"; a repeated name gets a "#n" suffix so each definition
// keeps its own ID. Source positions live in a separate Spans result, so a
// whitespace or comment edit re-runs the parser without disturbing
// anything that depends only on the declarations themselves.
package decls
