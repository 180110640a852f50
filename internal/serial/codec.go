package serial

import (
	"cmp"
	"slices"

	"github.com/roach88/incr/internal/intern"
)

// Codec is the two-function contract every serializable type provides.
type Codec[T any] struct {
	Write func(s *Serializer, v T)
	Read  func(d *Deserializer) T
}

// Encode is a convenience for c.Write.
func (c Codec[T]) Encode(s *Serializer, v T) {
	c.Write(s, v)
}

// Decode is a convenience for c.Read.
func (c Codec[T]) Decode(d *Deserializer) T {
	return c.Read(d)
}

// Object adapts a type that implements Serializable plus a read function.
func Object[T Serializable](read func(d *Deserializer) T) Codec[T] {
	return Codec[T]{
		Write: func(s *Serializer, v T) { v.Serialize(s) },
		Read:  read,
	}
}

// Built-in codecs.
var (
	Bool = Codec[bool]{
		Write: func(s *Serializer, v bool) { s.WriteBool(v) },
		Read:  func(d *Deserializer) bool { return d.ReadBool() },
	}
	Uint8 = Codec[uint8]{
		Write: func(s *Serializer, v uint8) { s.WriteU8(v) },
		Read:  func(d *Deserializer) uint8 { return d.ReadU8() },
	}
	Uint16 = Codec[uint16]{
		Write: func(s *Serializer, v uint16) { s.WriteU16(v) },
		Read:  func(d *Deserializer) uint16 { return d.ReadU16() },
	}
	Uint32 = Codec[uint32]{
		Write: func(s *Serializer, v uint32) { s.WriteU32(v) },
		Read:  func(d *Deserializer) uint32 { return d.ReadU32() },
	}
	Uint64 = Codec[uint64]{
		Write: func(s *Serializer, v uint64) { s.WriteU64(v) },
		Read:  func(d *Deserializer) uint64 { return d.ReadU64() },
	}
	Int8 = Codec[int8]{
		Write: func(s *Serializer, v int8) { s.WriteI8(v) },
		Read:  func(d *Deserializer) int8 { return d.ReadI8() },
	}
	Int16 = Codec[int16]{
		Write: func(s *Serializer, v int16) { s.WriteI16(v) },
		Read:  func(d *Deserializer) int16 { return d.ReadI16() },
	}
	Int32 = Codec[int32]{
		Write: func(s *Serializer, v int32) { s.WriteI32(v) },
		Read:  func(d *Deserializer) int32 { return d.ReadI32() },
	}
	Int64 = Codec[int64]{
		Write: func(s *Serializer, v int64) { s.WriteI64(v) },
		Read:  func(d *Deserializer) int64 { return d.ReadI64() },
	}
	// Int uses the variable-length form; int has no fixed width.
	Int = Codec[int]{
		Write: func(s *Serializer, v int) { s.WriteVInt(v) },
		Read:  func(d *Deserializer) int { return d.ReadVInt() },
	}
	Float64 = Codec[float64]{
		Write: func(s *Serializer, v float64) { s.WriteFloat64(v) },
		Read:  func(d *Deserializer) float64 { return d.ReadFloat64() },
	}
	String = Codec[string]{
		Write: func(s *Serializer, v string) { s.WriteString(v) },
		Read:  func(d *Deserializer) string { return d.ReadString() },
	}
	Bytes = Codec[[]byte]{
		Write: func(s *Serializer, v []byte) { s.WriteBytes(v) },
		Read:  func(d *Deserializer) []byte { return d.ReadBytes() },
	}
	Name = Codec[intern.Name]{
		Write: func(s *Serializer, v intern.Name) { s.WriteName(v) },
		Read:  func(d *Deserializer) intern.Name { return d.ReadName() },
	}
)

// readCount reads a collection length and rejects lengths that cannot fit in
// the remaining data. Every element encoding takes at least one byte.
func readCount(d *Deserializer) int {
	n := d.ReadVU64()
	if n > uint64(d.Remaining()) {
		d.overrun = true
		d.pos = len(d.data)
		return 0
	}
	return int(n)
}

// SliceOf encodes a slice as a count followed by its elements. Decoded
// slices are never nil.
func SliceOf[T any](elem Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Write: func(s *Serializer, v []T) {
			s.WriteVU64(uint64(len(v)))
			for _, e := range v {
				elem.Write(s, e)
			}
		},
		Read: func(d *Deserializer) []T {
			n := readCount(d)
			out := make([]T, 0, n)
			for i := 0; i < n; i++ {
				out = append(out, elem.Read(d))
			}
			return out
		},
	}
}

// SetOf encodes a set in ascending key order so equal sets produce equal
// bytes.
func SetOf[K cmp.Ordered](elem Codec[K]) Codec[map[K]struct{}] {
	return SetFunc(elem, cmp.Compare[K])
}

// SetFunc is SetOf for keys ordered by compare.
func SetFunc[K comparable](elem Codec[K], compare func(a, b K) int) Codec[map[K]struct{}] {
	return Codec[map[K]struct{}]{
		Write: func(s *Serializer, v map[K]struct{}) {
			keys := make([]K, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			slices.SortFunc(keys, compare)
			s.WriteVU64(uint64(len(keys)))
			for _, k := range keys {
				elem.Write(s, k)
			}
		},
		Read: func(d *Deserializer) map[K]struct{} {
			n := readCount(d)
			out := make(map[K]struct{}, n)
			for i := 0; i < n; i++ {
				out[elem.Read(d)] = struct{}{}
			}
			return out
		},
	}
}

// MapOf encodes a map as a count followed by key/value pairs in ascending
// key order.
func MapOf[K cmp.Ordered, V any](key Codec[K], val Codec[V]) Codec[map[K]V] {
	return MapFunc(key, val, cmp.Compare[K])
}

// MapFunc is MapOf for keys ordered by compare.
func MapFunc[K comparable, V any](key Codec[K], val Codec[V], compare func(a, b K) int) Codec[map[K]V] {
	return Codec[map[K]V]{
		Write: func(s *Serializer, v map[K]V) {
			keys := make([]K, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			slices.SortFunc(keys, compare)
			s.WriteVU64(uint64(len(keys)))
			for _, k := range keys {
				key.Write(s, k)
				val.Write(s, v[k])
			}
		},
		Read: func(d *Deserializer) map[K]V {
			n := readCount(d)
			out := make(map[K]V, n)
			for i := 0; i < n; i++ {
				k := key.Read(d)
				out[k] = val.Read(d)
			}
			return out
		},
	}
}

// CompareNames orders names by text, for use with SetFunc and MapFunc.
func CompareNames(a, b intern.Name) int {
	return cmp.Compare(a.String(), b.String())
}

// Pair is a two-element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

// PairOf encodes a Pair as its two elements in order.
func PairOf[A, B any](a Codec[A], b Codec[B]) Codec[Pair[A, B]] {
	return Codec[Pair[A, B]]{
		Write: func(s *Serializer, v Pair[A, B]) {
			a.Write(s, v.First)
			b.Write(s, v.Second)
		},
		Read: func(d *Deserializer) Pair[A, B] {
			first := a.Read(d)
			return Pair[A, B]{First: first, Second: b.Read(d)}
		},
	}
}
