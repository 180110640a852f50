// Package intern canonicalizes text into small comparable identities.
//
// A Name is the interned form of a byte sequence. Two Names are equal iff
// they refer to the same table record, so comparison and hashing are O(1)
// pointer operations and never look at the text. The zero Name is the
// canonical empty string and needs no table.
//
// # Garbage collection
//
// A Table grows on every first intern. Collect runs a mark/sweep pass:
// live data marks the names it still references through a Marker, and
// every record left unmarked is dropped from the table. Mark/sweep instead
// of reference counting tolerates cycles between names and the structures
// that reference them.
//
// A Name that was swept keeps its text (the record is still reachable from
// the Name), but interning the same text again yields a different identity.
// Holders that outlive a sweep must mark their names.
//
// A Table is not safe for concurrent use; it is owned by one engine.
package intern
