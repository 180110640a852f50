package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/loc"
)

// Mode selects the output style of a Writer.
type Mode uint8

const (
	// Brief prints one line per diagnostic and note.
	Brief Mode = iota
	// Detailed prints headings and source excerpts.
	Detailed
)

// String returns the mode name accepted by ParseMode.
func (m Mode) String() string {
	if m == Detailed {
		return "detailed"
	}
	return "brief"
}

// ParseMode parses "brief" or "detailed".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "brief", "":
		return Brief, nil
	case "detailed":
		return Detailed, nil
	}
	return Brief, fmt.Errorf("unknown report mode %q (want brief or detailed)", s)
}

// SourceFunc returns the text of a source file, for excerpts.
type SourceFunc func(path string) (string, bool)

// Writer prints diagnostics and counts them by severity.
type Writer struct {
	out      io.Writer
	mode     Mode
	locator  engine.Locator
	source   SourceFunc
	errors   int
	warnings int
	err      error
}

// Option configures a Writer.
type Option func(*Writer)

// WithLocator resolves entity IDs through l.
func WithLocator(l engine.Locator) Option {
	return func(w *Writer) {
		w.locator = l
	}
}

// WithSource lets detailed mode print excerpts from fn's sources.
func WithSource(fn SourceFunc) Option {
	return func(w *Writer) {
		w.source = fn
	}
}

// NewWriter creates a Writer printing to out.
func NewWriter(out io.Writer, mode Mode, opts ...Option) *Writer {
	w := &Writer{out: out, mode: mode}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints one diagnostic. The first output error is kept and returned
// by every later call.
func (w *Writer) Write(d diag.Diagnostic) error {
	switch {
	case d.Kind.IsError():
		w.errors++
	case d.Kind == diag.KindWarning:
		w.warnings++
	}
	f := Flatten(d, w.locator)
	if w.mode == Detailed {
		w.detailed(f)
	} else {
		w.brief(f)
	}
	return w.err
}

// WriteAll prints ds in order.
func (w *Writer) WriteAll(ds []diag.Diagnostic) error {
	for _, d := range ds {
		if err := w.Write(d); err != nil {
			return err
		}
	}
	return nil
}

// Counts returns how many errors and warnings were written.
func (w *Writer) Counts() (errors, warnings int) {
	return w.errors, w.warnings
}

// Summary prints a closing line such as "2 errors, 1 warning".
func (w *Writer) Summary() error {
	w.printf("%s, %s\n", plural(w.errors, "error"), plural(w.warnings, "warning"))
	return w.err
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	_, w.err = fmt.Fprintf(w.out, format, args...)
}

func label(k diag.Kind) string {
	if k == diag.KindSyntax {
		return "syntax error"
	}
	return k.String()
}

func (w *Writer) brief(f Flat) {
	w.printf("%s: %s: %s\n", where(f.ID, f.Location), label(f.Kind), f.Message)
	for _, n := range f.Notes {
		w.printf("%s: note: %s\n", where(n.ID, n.Location), n.Message)
	}
}

func (w *Writer) detailed(f Flat) {
	w.printf("--- %s in %s [%s] ---\n", label(f.Kind), where(f.ID, f.Location), f.Code)
	w.printf("  %s\n", f.Message)
	w.excerpt(f.Location)
	for _, n := range f.Notes {
		w.printf("  note: %s (%s)\n", n.Message, where(n.ID, n.Location))
		w.excerpt(n.Location)
	}
	w.printf("\n")
}

// excerpt prints the lines of l, underlining single-line spans.
func (w *Writer) excerpt(l loc.Location) {
	if w.source == nil || l.FirstLine == 0 {
		return
	}
	text, ok := w.source(l.Path.String())
	if !ok {
		return
	}
	lines := strings.Split(text, "\n")
	last := max(l.LastLine, l.FirstLine)
	if l.FirstLine > len(lines) || last > len(lines) {
		return
	}

	width := len(fmt.Sprint(last))
	gutter := strings.Repeat(" ", width)
	w.printf("    %s |\n", gutter)
	for n := l.FirstLine; n <= last; n++ {
		w.printf("    %*d | %s\n", width, n, lines[n-1])
	}
	if last == l.FirstLine && l.FirstColumn > 0 {
		span := max(l.LastColumn-l.FirstColumn+1, 1)
		w.printf("    %s | %s%s\n", gutter, strings.Repeat(" ", l.FirstColumn-1), strings.Repeat("^", span))
	}
}
