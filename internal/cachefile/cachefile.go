package cachefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/roach88/incr/internal/serial"
)

// Magic opens every cache file.
const Magic = "INCRQC"

// FormatVersion is the layout version this package reads and writes.
const FormatVersion = 1

var (
	// ErrCorrupt means the data is not a well-formed cache file.
	ErrCorrupt = errors.New("corrupt cache file")

	// ErrVersion means the file was written with another format version.
	ErrVersion = errors.New("unsupported cache file version")
)

// Header describes a cache file.
type Header struct {
	Version   uint64
	SessionID string
	Entries   int
	Strings   int
	Checksum  uint64
}

// File is a decoded cache file.
type File struct {
	Header

	// Strings is the long-string table with index 0 unused, ready for
	// serial.NewDeserializer.
	Strings []string

	// Body is the encoded entries.
	Body []byte
}

// Write frames body with a header and the long-string table. strings is
// the serializer's table, index 0 unused. It returns the bytes written.
func Write(w io.Writer, sessionID string, entries int, strings []string, body []byte) (int, error) {
	var payload bytes.Buffer
	ps := serial.NewSerializer(&payload)
	for _, str := range tail(strings) {
		ps.WriteBytes([]byte(str))
	}
	ps.WriteData(body)
	if err := ps.Err(); err != nil {
		return 0, fmt.Errorf("encode cache payload: %w", err)
	}

	var head bytes.Buffer
	hs := serial.NewSerializer(&head)
	hs.WriteData([]byte(Magic))
	hs.WriteVU64(FormatVersion)
	hs.WriteBytes([]byte(sessionID))
	hs.WriteVU64(uint64(entries))
	hs.WriteVU64(uint64(len(tail(strings))))
	hs.WriteU64(xxhash.Sum64(payload.Bytes()))
	if err := hs.Err(); err != nil {
		return 0, fmt.Errorf("encode cache header: %w", err)
	}

	n, err := w.Write(head.Bytes())
	if err != nil {
		return n, fmt.Errorf("write cache header: %w", err)
	}
	m, err := w.Write(payload.Bytes())
	if err != nil {
		return n + m, fmt.Errorf("write cache payload: %w", err)
	}
	return n + m, nil
}

// Read reads and validates a whole cache file.
func Read(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	return Parse(data)
}

// Parse validates data and splits it into header, strings and body.
func Parse(data []byte) (*File, error) {
	h, rest, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if sum := xxhash.Sum64(rest); sum != h.Checksum {
		return nil, fmt.Errorf("%w: checksum %016x, want %016x", ErrCorrupt, sum, h.Checksum)
	}

	d := serial.NewDeserializer(nil, rest, nil)
	if h.Strings > d.Remaining() {
		return nil, fmt.Errorf("%w: %d strings in %d bytes", ErrCorrupt, h.Strings, d.Remaining())
	}
	strs := make([]string, 1, h.Strings+1)
	for i := 0; i < h.Strings; i++ {
		strs = append(strs, string(d.ReadBytes()))
	}
	if d.Overrun() {
		return nil, fmt.Errorf("%w: truncated string table", ErrCorrupt)
	}

	return &File{
		Header:  h,
		Strings: strs,
		Body:    rest[len(rest)-d.Remaining():],
	}, nil
}

// ReadHeader decodes only the header, without verifying the checksum.
func ReadHeader(data []byte) (Header, error) {
	h, _, err := parseHeader(data)
	return h, err
}

func parseHeader(data []byte) (Header, []byte, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return Header{}, nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	d := serial.NewDeserializer(nil, data[len(Magic):], nil)

	var h Header
	h.Version = d.ReadVU64()
	if d.Overrun() {
		return Header{}, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	if h.Version != FormatVersion {
		return Header{}, nil, fmt.Errorf("%w: %d (want %d)", ErrVersion, h.Version, FormatVersion)
	}
	h.SessionID = string(d.ReadBytes())
	h.Entries = int(d.ReadVU64())
	h.Strings = int(d.ReadVU64())
	h.Checksum = d.ReadU64()
	if d.Overrun() || h.Entries < 0 || h.Strings < 0 {
		return Header{}, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}

	rest := data[len(data)-d.Remaining():]
	return h, rest, nil
}

func tail(strings []string) []string {
	if len(strings) == 0 {
		return nil
	}
	return strings[1:]
}
