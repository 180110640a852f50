package diag

import (
	"github.com/roach88/incr/internal/loc"
	"github.com/roach88/incr/internal/serial"
)

// Serialize implements serial.Serializable.
func (d Diagnostic) Serialize(s *serial.Serializer) {
	s.WriteU8(uint8(d.Kind))
	s.WriteVU64(uint64(d.Code))
	d.ID.Serialize(s)
	d.Loc.Serialize(s)
	s.WriteString(d.Message)
	noteList.Write(s, d.Notes)
	writeDetail(s, d.Detail)
}

// Serialize implements serial.Serializable.
func (n Note) Serialize(s *serial.Serializer) {
	n.ID.Serialize(s)
	n.Loc.Serialize(s)
	s.WriteString(n.Message)
}

func readNote(des *serial.Deserializer) Note {
	var n Note
	n.ID = loc.ReadID(des)
	n.Loc = loc.ReadLocation(des)
	n.Message = des.ReadString()
	return n
}

var noteList = serial.SliceOf(serial.Object(readNote))

// ReadDiagnostic reads a Diagnostic written by Serialize.
func ReadDiagnostic(des *serial.Deserializer) Diagnostic {
	var d Diagnostic
	d.Kind = Kind(des.ReadU8())
	d.Code = Code(des.ReadVU64())
	d.ID = loc.ReadID(des)
	d.Loc = loc.ReadLocation(des)
	d.Message = des.ReadString()
	if notes := noteList.Read(des); len(notes) > 0 {
		d.Notes = notes
	}
	d.Detail = readDetail(des)
	return d
}

// Codec encodes diagnostics.
var Codec = serial.Object(ReadDiagnostic)

// ListCodec encodes diagnostic lists.
var ListCodec = serial.SliceOf(Codec)

const (
	detailNone uint8 = iota
	detailCycle
	detailRedefinition
	detailUnknown
)

func writeDetail(s *serial.Serializer, detail Detail) {
	switch v := detail.(type) {
	case CycleDetail:
		s.WriteU8(detailCycle)
		pathCodec.Write(s, v.Path)
	case RedefinitionDetail:
		s.WriteU8(detailRedefinition)
		s.WriteName(v.Name)
		idsCodec.Write(s, v.Others)
	case UnknownDetail:
		s.WriteU8(detailUnknown)
		s.WriteName(v.Name)
	default:
		s.WriteU8(detailNone)
	}
}

func readDetail(des *serial.Deserializer) Detail {
	switch des.ReadU8() {
	case detailCycle:
		return CycleDetail{Path: pathCodec.Read(des)}
	case detailRedefinition:
		name := des.ReadName()
		return RedefinitionDetail{Name: name, Others: idsCodec.Read(des)}
	case detailUnknown:
		return UnknownDetail{Name: des.ReadName()}
	default:
		return nil
	}
}

var (
	pathCodec = serial.SliceOf(serial.String)
	idsCodec  = serial.SliceOf(loc.IDCodec)
)
