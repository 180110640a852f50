package engine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/roach88/incr/internal/cachefile"
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/serial"
)

const (
	tagInput uint8 = iota
	tagQuery
)

// SaveCache writes every persistable entry that is current in this
// revision to w and returns the number of entries written.
//
// An entry is persistable when its kind was declared with Persist, it holds
// a non-cyclic value verified in the current revision, and every entry it
// depends on is of a persistable kind. Inputs are written whenever they
// hold a value.
func (e *Engine) SaveCache(w io.Writer) (int, error) {
	e.checkOpen()
	if len(e.stack) > 0 {
		fatal(FatalInvariant, e.stack[len(e.stack)-1].slot.describe(),
			"cache saved while a query is executing")
	}

	rev := e.clock.Current()
	var body bytes.Buffer
	s := serial.NewSerializer(&body)
	count, skipped := 0, 0
	for _, name := range e.kindOrder {
		k := e.kinds[name]
		if !k.persistent() {
			continue
		}
		for _, sl := range e.tables[k].slots() {
			if !savable(sl, rev) {
				if sl.base().hasValue {
					skipped++
				}
				continue
			}
			writeEntry(s, sl)
			count++
		}
	}
	if err := s.Err(); err != nil {
		return 0, fmt.Errorf("encode cache entries: %w", err)
	}

	n, err := cachefile.Write(w, e.sessionID, count, s.StringTable(), body.Bytes())
	if err != nil {
		return 0, err
	}
	e.logger.Info("query cache saved",
		"session", e.sessionID,
		"revision", rev,
		"entries", count,
		"skipped", skipped,
		"bytes", n,
	)
	return count, nil
}

func savable(s slot, rev Revision) bool {
	n := s.base()
	if !n.hasValue || n.cyclic {
		return false
	}
	if n.input {
		return true
	}
	if n.verifiedAt != rev {
		return false
	}
	for _, d := range n.deps {
		if d.changedAt == cycleRevision || !d.callee.kind().persistent() {
			return false
		}
	}
	return true
}

func writeEntry(s *serial.Serializer, sl slot) {
	n := sl.base()
	s.WriteString(sl.kind().Name())
	if n.input {
		s.WriteU8(tagInput)
	} else {
		s.WriteU8(tagQuery)
	}
	sl.writeArg(s)
	sl.writeValue(s)
	s.WriteVU64(uint64(len(n.deps)))
	for _, d := range n.deps {
		s.WriteString(d.callee.kind().Name())
		d.callee.writeArg(s)
	}
	diag.ListCodec.Write(s, n.diags)
}

// pendingEntry is a decoded entry not yet installed.
type pendingEntry struct {
	kind  Kind
	arg   any
	value any
	deps  []pendingDep
	diags []diag.Diagnostic
}

type pendingDep struct {
	kind Kind
	arg  any
}

// LoadCache reads a cache written by SaveCache and installs its entries at
// PersistedRevision. It returns the number of entries installed.
//
// The file is decoded completely before anything is installed. On any
// fault (bad framing, checksum mismatch, unknown kind, truncated entry)
// nothing is installed, a warning is logged and an error wrapping
// ErrCorruptCache is returned; the engine simply recomputes.
//
// Loaded inputs count as changed until Set confirms them in this session.
// Kinds must be registered (WithQueries or Register) before loading.
func (e *Engine) LoadCache(r io.Reader) (int, error) {
	e.checkOpen()
	if len(e.stack) > 0 {
		fatal(FatalInvariant, e.stack[len(e.stack)-1].slot.describe(),
			"cache loaded while a query is executing")
	}

	entries, session, err := e.decodeCache(r)
	if err != nil {
		e.logger.Warn("discarding persisted query cache", "error", err)
		return 0, fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}

	installed := make([]slot, len(entries))
	count := 0
	for i, p := range entries {
		installed[i] = p.kind.install(e, p.arg, p.value)
		if installed[i] != nil {
			count++
		}
	}
	for i, p := range entries {
		sl := installed[i]
		if sl == nil {
			continue
		}
		n := sl.base()
		n.diags = p.diags
		if len(p.deps) > 0 {
			n.deps = make([]edge, 0, len(p.deps))
			for _, d := range p.deps {
				n.deps = append(n.deps, edge{callee: d.kind.placeholder(e, d.arg), changedAt: PersistedRevision})
			}
		}
	}

	e.stats.EntriesLoaded += int64(count)
	e.logger.Info("query cache loaded",
		"session", session,
		"entries", count,
		"skipped", len(entries)-count,
	)
	return count, nil
}

func (e *Engine) decodeCache(r io.Reader) ([]pendingEntry, string, error) {
	f, err := cachefile.Read(r)
	if err != nil {
		return nil, "", err
	}

	d := serial.NewDeserializer(e.interner, f.Body, f.Strings)
	if f.Entries > d.Remaining() {
		return nil, "", fmt.Errorf("%w: %d entries in %d bytes", cachefile.ErrCorrupt, f.Entries, d.Remaining())
	}
	entries := make([]pendingEntry, 0, f.Entries)
	for i := 0; i < f.Entries; i++ {
		p, err := e.decodeEntry(d)
		if err != nil {
			return nil, "", fmt.Errorf("entry %d: %w", i, err)
		}
		if d.Overrun() {
			return nil, "", fmt.Errorf("%w: entry %d truncated", cachefile.ErrCorrupt, i)
		}
		entries = append(entries, p)
	}
	if d.Remaining() != 0 {
		return nil, "", fmt.Errorf("%w: %d trailing bytes", cachefile.ErrCorrupt, d.Remaining())
	}
	return entries, f.SessionID, nil
}

func (e *Engine) decodeEntry(d *serial.Deserializer) (pendingEntry, error) {
	var p pendingEntry
	k, err := e.persistedKind(d.ReadString())
	if err != nil {
		return p, err
	}
	tag := d.ReadU8()
	if (tag == tagInput) != k.isInput() || tag > tagQuery {
		return p, fmt.Errorf("%w: kind %s has tag %d", cachefile.ErrCorrupt, k.Name(), tag)
	}
	p.kind = k
	p.arg, p.value = k.readEntry(d)

	n := d.ReadVU64()
	if n > uint64(d.Remaining()) {
		return p, fmt.Errorf("%w: %d dependencies in %d bytes", cachefile.ErrCorrupt, n, d.Remaining())
	}
	for j := uint64(0); j < n; j++ {
		dk, err := e.persistedKind(d.ReadString())
		if err != nil {
			return p, err
		}
		p.deps = append(p.deps, pendingDep{kind: dk, arg: dk.readArg(d)})
	}
	p.diags = diag.ListCodec.Read(d)
	if len(p.diags) == 0 {
		p.diags = nil
	}
	return p, nil
}

func (e *Engine) persistedKind(name string) (Kind, error) {
	k, ok := e.kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown query kind %q", cachefile.ErrCorrupt, name)
	}
	if !k.persistent() {
		return nil, fmt.Errorf("%w: query kind %q is not persistable", cachefile.ErrCorrupt, name)
	}
	return k, nil
}
