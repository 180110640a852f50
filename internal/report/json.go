package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
)

// Record is the JSON form of a diagnostic. Fields are declared in key
// order so output is canonical.
type Record struct {
	Code     string       `json:"code"`
	ID       string       `json:"id,omitempty"`
	Kind     string       `json:"kind"`
	Location string       `json:"location"`
	Message  string       `json:"message"`
	Notes    []NoteRecord `json:"notes,omitempty"`
}

// NoteRecord is the JSON form of a note.
type NoteRecord struct {
	Location string `json:"location"`
	Message  string `json:"message"`
}

// Records converts ds for JSON output, resolving locations through l.
// Strings are NFC normalized.
func Records(ds []diag.Diagnostic, l engine.Locator) []Record {
	out := make([]Record, 0, len(ds))
	for _, d := range ds {
		f := Flatten(d, l)
		r := Record{
			Code:     f.Code.String(),
			Kind:     f.Kind.String(),
			Location: norm.NFC.String(where(f.ID, f.Location)),
			Message:  norm.NFC.String(f.Message),
		}
		if !f.ID.IsEmpty() {
			r.ID = norm.NFC.String(f.ID.String())
		}
		for _, n := range f.Notes {
			r.Notes = append(r.Notes, NoteRecord{
				Location: norm.NFC.String(where(n.ID, n.Location)),
				Message:  norm.NFC.String(n.Message),
			})
		}
		out = append(out, r)
	}
	return out
}

// MarshalJSON encodes ds as an indented JSON array without HTML escaping.
func MarshalJSON(ds []diag.Diagnostic, l engine.Locator) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(ds, l)); err != nil {
		return nil, fmt.Errorf("encode diagnostics: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJSON writes MarshalJSON's output to w.
func WriteJSON(w io.Writer, ds []diag.Diagnostic, l engine.Locator) error {
	data, err := MarshalJSON(ds, l)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write diagnostics: %w", err)
	}
	return nil
}
