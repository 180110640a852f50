// Package serial encodes values to and from the compact binary form used by
// persisted query caches.
//
// Integers used as counts or lengths are written as variable-length
// integers; fixed-size integers, floats and booleans are little-endian.
// Strings shorter than LongStringSize are written inline. Longer strings go
// through a long-string table: the first occurrence is assigned the next
// table index and every occurrence, first included, is written as that
// index. The table itself is not part of the value stream; callers persist
// it separately (see internal/cachefile) and hand it back to the
// Deserializer.
//
// Reading never fails. Truncated or corrupt input yields zero or empty
// values and sets Overrun; callers validate structure (checksums, version
// headers) before trusting decoded data.
//
// Composite types are handled by Codec values. A Codec pairs a write and a
// read function; SliceOf, SetOf and MapOf build codecs for sequences, sets
// and maps from element codecs, and Object adapts user-defined types that
// implement Serializable.
package serial
