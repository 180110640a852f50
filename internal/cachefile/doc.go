// Package cachefile defines the on-disk framing of a persisted query cache.
//
// A cache file is a header, a long-string table and an opaque body of
// encoded entries:
//
//	magic       "INCRQC" (6 bytes)
//	version     uvarint, FormatVersion
//	session     uvarint length + bytes
//	entries     uvarint, number of entries in the body
//	strings     uvarint, number of long strings
//	checksum    uint64 little-endian, xxhash64 of everything that follows
//	table       per string: uvarint length + bytes (indices 1..strings)
//	body        entries as written by the engine
//
// Read validates the magic, the version and the checksum before returning
// anything, so callers never see a partially valid file.
package cachefile
