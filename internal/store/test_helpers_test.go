package store

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/roach88/incr/internal/cachefile"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCache builds a well-formed cache file with the given session
// and entry count.
func createTestCache(t *testing.T, session string, entries int) []byte {
	t.Helper()
	var buf bytes.Buffer
	strs := []string{"", "a-long-interned-string"}
	if _, err := cachefile.Write(&buf, session, entries, strs, []byte{1, 2, 3}); err != nil {
		t.Fatalf("cachefile.Write() failed: %v", err)
	}
	return buf.Bytes()
}
