// Package report renders diagnostics for people and tools.
//
// A Writer prints diagnostics in one of two modes. Brief mode prints one
// line per diagnostic and per note:
//
//	a.decl:2:8: error: unknown type 'missing'
//
// Detailed mode prints a heading naming the variant, the message, and an
// excerpt of the source around each location when sources are available.
//
// Diagnostics addressed by entity ID are located through an
// engine.Locator; without one, or when the locator cannot place an ID, the
// ID itself is printed. Flatten gives the same resolution as plain data,
// and WriteJSON emits a deterministic JSON array for tools.
package report
