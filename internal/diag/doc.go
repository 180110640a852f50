// Package diag defines the diagnostic records produced by query bodies.
//
// Diagnostics are data, not errors: a query body reports them through the
// engine and keeps going. Each Diagnostic carries a severity Kind, a Code
// tag from a closed set, either a precise Location or an entity ID from
// which a location is derived, a primary message and zero or more notes.
//
// Kind-specific payload lives in Detail, a sealed interface whose concrete
// type is fixed by the Code (CycleDetail for CodeCycle, RedefinitionDetail
// for CodeRedefinition, UnknownDetail for CodeUnknownType and
// CodeUnknownName). Formatters in internal/report switch on the Code.
package diag
