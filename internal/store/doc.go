// Package store keeps named query-cache snapshots in SQLite.
//
// A snapshot is the byte image of a persisted cache, as written by
// engine.SaveCache, stored under a name next to the header fields a listing
// needs: session id, format version, checksum, entry count and the revision
// the engine had reached. The blob itself is opaque here; it is validated
// again by engine.LoadCache when it is used.
//
// Ordering is logical. Every save draws the next seq, so re-saving a name
// moves it to the end; ListSnapshots returns seq ASC, then name COLLATE
// BINARY ASC, and PruneSnapshots keeps the highest seqs. Wall-clock time is
// never recorded.
//
// Checksums are stored as 16 hex digits because SQLite integers are signed.
//
// Open applies schema.sql and then each migration whose version is above
// the database's user_version. The connection runs in WAL mode with
// synchronous=NORMAL and a five second busy timeout.
package store
