package serial

import (
	"encoding/binary"
	"math"

	"github.com/roach88/incr/internal/intern"
)

// Deserializer reads values written by a Serializer.
type Deserializer struct {
	table   *intern.Table
	data    []byte
	pos     int
	strings []string
	overrun bool
}

// NewDeserializer reads data using strings as the long-string table
// (index 0 unused). Names are re-interned through table.
func NewDeserializer(table *intern.Table, data []byte, strings []string) *Deserializer {
	return &Deserializer{
		table:   table,
		data:    data,
		strings: strings,
	}
}

// NewDeserializerFromCache converts a Serializer's string cache into a table
// and reads data with it.
func NewDeserializerFromCache(table *intern.Table, data []byte, cache map[string]uint32) *Deserializer {
	strs := make([]string, len(cache)+1)
	for text, idx := range cache {
		if int(idx) < len(strs) {
			strs[idx] = text
		}
	}
	return NewDeserializer(table, data, strs)
}

// Interner returns the table names are interned into.
func (d *Deserializer) Interner() *intern.Table {
	return d.table
}

// Overrun reports whether any read ran past the end of the data or referred
// to a missing long string.
func (d *Deserializer) Overrun() bool {
	return d.overrun
}

// Remaining returns the number of unread bytes.
func (d *Deserializer) Remaining() int {
	return len(d.data) - d.pos
}

// LongString returns the long string at idx, or "" if idx is out of range.
func (d *Deserializer) LongString(idx uint64) string {
	if idx == 0 || idx >= uint64(len(d.strings)) {
		d.overrun = true
		return ""
	}
	return d.strings[idx]
}

// ReadByte reads one byte; 0 at end of data.
func (d *Deserializer) ReadByte() (byte, error) {
	if d.pos < len(d.data) {
		b := d.data[d.pos]
		d.pos++
		return b, nil
	}
	d.overrun = true
	return 0, nil
}

// ReadData reads exactly n raw bytes. If fewer remain it returns n zero
// bytes and consumes the rest.
func (d *Deserializer) ReadData(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	if n > d.Remaining() {
		d.overrun = true
		d.pos = len(d.data)
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, d.data[d.pos:d.pos+n])
	d.pos += n
	return out
}

// ReadBytes reads a length-prefixed byte slice.
func (d *Deserializer) ReadBytes() []byte {
	n := d.ReadVU64()
	if n > uint64(d.Remaining()) {
		d.overrun = true
		d.pos = len(d.data)
		return []byte{}
	}
	return d.ReadData(int(n))
}

// ReadVU64 reads a variable-length unsigned integer.
func (d *Deserializer) ReadVU64() uint64 {
	v, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		d.overrun = true
		d.pos = len(d.data)
		return 0
	}
	d.pos += n
	return v
}

// ReadVI64 reads a variable-length signed integer.
func (d *Deserializer) ReadVI64() int64 {
	v, n := binary.Varint(d.data[d.pos:])
	if n <= 0 {
		d.overrun = true
		d.pos = len(d.data)
		return 0
	}
	d.pos += n
	return v
}

// ReadVInt reads an int written by WriteVInt.
func (d *Deserializer) ReadVInt() int {
	return int(d.ReadVI64())
}

func (d *Deserializer) fixed(n int) []byte {
	if n > d.Remaining() {
		d.overrun = true
		d.pos = len(d.data)
		return nil
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b
}

// ReadU8 reads a fixed-size uint8.
func (d *Deserializer) ReadU8() uint8 {
	b, _ := d.ReadByte()
	return b
}

// ReadU16 reads a fixed-size little-endian uint16.
func (d *Deserializer) ReadU16() uint16 {
	b := d.fixed(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadU32 reads a fixed-size little-endian uint32.
func (d *Deserializer) ReadU32() uint32 {
	b := d.fixed(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadU64 reads a fixed-size little-endian uint64.
func (d *Deserializer) ReadU64() uint64 {
	b := d.fixed(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadI8 reads a fixed-size int8.
func (d *Deserializer) ReadI8() int8 { return int8(d.ReadU8()) }

// ReadI16 reads a fixed-size int16.
func (d *Deserializer) ReadI16() int16 { return int16(d.ReadU16()) }

// ReadI32 reads a fixed-size int32.
func (d *Deserializer) ReadI32() int32 { return int32(d.ReadU32()) }

// ReadI64 reads a fixed-size int64.
func (d *Deserializer) ReadI64() int64 { return int64(d.ReadU64()) }

// ReadFloat64 reads an IEEE-754 float64.
func (d *Deserializer) ReadFloat64() float64 {
	return math.Float64frombits(d.ReadU64())
}

// ReadBool reads a boolean.
func (d *Deserializer) ReadBool() bool {
	return d.ReadU8() != 0
}

// ReadString reads a string written by WriteString.
func (d *Deserializer) ReadString() string {
	head := d.ReadVU64()
	if head&1 == 1 {
		return d.LongString(head >> 1)
	}
	n := head >> 1
	if n == 0 {
		return ""
	}
	if n > uint64(d.Remaining()) {
		d.overrun = true
		d.pos = len(d.data)
		return ""
	}
	s := string(d.data[d.pos : d.pos+int(n)])
	d.pos += int(n)
	return s
}

// ReadName reads a string and interns it. Without a table the text is
// interned into a private table, which still round-trips the text but not
// the identity.
func (d *Deserializer) ReadName() intern.Name {
	s := d.ReadString()
	if d.table == nil {
		d.table = intern.NewTable()
	}
	return d.table.Intern(s)
}
