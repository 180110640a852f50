package serial

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/roach88/incr/internal/intern"
)

// LongStringSize is the length at which strings move to the long-string table.
const LongStringSize = 20

// Serializable is implemented by user-defined types that write themselves.
type Serializable interface {
	Serialize(s *Serializer)
}

// Serializer writes values to an io.Writer. The first write error is kept
// and every later write becomes a no-op; check Err once at the end.
type Serializer struct {
	w       io.Writer
	err     error
	written int64
	scratch [binary.MaxVarintLen64]byte

	cache map[string]uint32
	order []string
}

// NewSerializer creates a Serializer writing to w.
func NewSerializer(w io.Writer) *Serializer {
	return &Serializer{
		w:     w,
		cache: make(map[string]uint32),
		order: []string{""},
	}
}

// Err returns the first write error, if any.
func (s *Serializer) Err() error {
	return s.err
}

// Written returns the number of bytes written so far.
func (s *Serializer) Written() int64 {
	return s.written
}

// StringCache returns the long-string cache: text to table index.
func (s *Serializer) StringCache() map[string]uint32 {
	return s.cache
}

// StringTable returns the long strings ordered by index. Index 0 is unused
// and holds the empty string.
func (s *Serializer) StringTable() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// NextStringIndex returns the index the next new long string will receive.
func (s *Serializer) NextStringIndex() uint32 {
	return uint32(len(s.order))
}

func (s *Serializer) put(b []byte) {
	if s.err != nil {
		return
	}
	n, err := s.w.Write(b)
	s.written += int64(n)
	if err != nil {
		s.err = err
	}
}

// WriteByte writes one byte.
func (s *Serializer) WriteByte(b byte) error {
	s.scratch[0] = b
	s.put(s.scratch[:1])
	return s.err
}

// WriteData writes raw bytes with no length prefix.
func (s *Serializer) WriteData(b []byte) {
	if len(b) > 0 {
		s.put(b)
	}
}

// WriteBytes writes a length-prefixed byte slice.
func (s *Serializer) WriteBytes(b []byte) {
	s.WriteVU64(uint64(len(b)))
	s.WriteData(b)
}

// WriteVU64 writes a variable-length unsigned integer.
func (s *Serializer) WriteVU64(v uint64) {
	n := binary.PutUvarint(s.scratch[:], v)
	s.put(s.scratch[:n])
}

// WriteVI64 writes a variable-length signed integer (zig-zag encoded).
func (s *Serializer) WriteVI64(v int64) {
	n := binary.PutVarint(s.scratch[:], v)
	s.put(s.scratch[:n])
}

// WriteVInt writes an int as a variable-length signed integer.
func (s *Serializer) WriteVInt(v int) {
	s.WriteVI64(int64(v))
}

// WriteU8 writes a fixed-size uint8.
func (s *Serializer) WriteU8(v uint8) {
	_ = s.WriteByte(v)
}

// WriteU16 writes a fixed-size little-endian uint16.
func (s *Serializer) WriteU16(v uint16) {
	binary.LittleEndian.PutUint16(s.scratch[:2], v)
	s.put(s.scratch[:2])
}

// WriteU32 writes a fixed-size little-endian uint32.
func (s *Serializer) WriteU32(v uint32) {
	binary.LittleEndian.PutUint32(s.scratch[:4], v)
	s.put(s.scratch[:4])
}

// WriteU64 writes a fixed-size little-endian uint64.
func (s *Serializer) WriteU64(v uint64) {
	binary.LittleEndian.PutUint64(s.scratch[:8], v)
	s.put(s.scratch[:8])
}

// WriteI8 writes a fixed-size int8.
func (s *Serializer) WriteI8(v int8) { s.WriteU8(uint8(v)) }

// WriteI16 writes a fixed-size int16.
func (s *Serializer) WriteI16(v int16) { s.WriteU16(uint16(v)) }

// WriteI32 writes a fixed-size int32.
func (s *Serializer) WriteI32(v int32) { s.WriteU32(uint32(v)) }

// WriteI64 writes a fixed-size int64.
func (s *Serializer) WriteI64(v int64) { s.WriteU64(uint64(v)) }

// WriteFloat64 writes an IEEE-754 float64.
func (s *Serializer) WriteFloat64(v float64) {
	s.WriteU64(math.Float64bits(v))
}

// WriteBool writes a boolean as one byte.
func (s *Serializer) WriteBool(v bool) {
	if v {
		s.WriteU8(1)
		return
	}
	s.WriteU8(0)
}

// cacheString returns the table index for str, assigning one on first use.
func (s *Serializer) cacheString(str string) uint32 {
	if idx, ok := s.cache[str]; ok {
		return idx
	}
	idx := uint32(len(s.order))
	s.cache[str] = idx
	s.order = append(s.order, str)
	return idx
}

// WriteString writes a string. The low bit of the leading varint selects the
// form: 0 means inline (length in the upper bits, bytes follow), 1 means a
// long-string table index in the upper bits.
func (s *Serializer) WriteString(str string) {
	if len(str) >= LongStringSize {
		idx := s.cacheString(str)
		s.WriteVU64(uint64(idx)<<1 | 1)
		return
	}
	s.WriteVU64(uint64(len(str)) << 1)
	if len(str) > 0 {
		s.put([]byte(str))
	}
}

// WriteName writes an interned name by its text.
func (s *Serializer) WriteName(n intern.Name) {
	s.WriteString(n.String())
}

// Write writes a Serializable value.
func (s *Serializer) Write(v Serializable) {
	v.Serialize(s)
}
