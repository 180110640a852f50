package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_KeepsSnapshotsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	saveTestSnapshot(t, s1, "main", "session-1", 3, 4)
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	snap, err := s2.LoadSnapshot(context.Background(), "main")
	if err != nil {
		t.Fatalf("LoadSnapshot() after reopen failed: %v", err)
	}
	if snap.Entries != 3 || snap.Revision != 4 {
		t.Errorf("reopened snapshot = %d entries at revision %d, want 3 at 4", snap.Entries, snap.Revision)
	}
}

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, index := range []string{"idx_snapshots_session", "idx_snapshots_seq"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", index,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %s not found after repeated opens: %v", index, err)
		}
	}
}

func TestOpen_UpgradesOldDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// Roll the database back to the bare schema.
	if _, err := s.db.Exec("DROP INDEX idx_snapshots_seq"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	v, err := s.version(context.Background())
	if err != nil {
		t.Fatalf("version() failed: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("user_version = %d, want %d", v, schemaVersion)
	}
	var name string
	if err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE name='idx_snapshots_seq'").Scan(&name); err != nil {
		t.Errorf("seq index not recreated: %v", err)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			if err != nil {
				t.Fatalf("pragma(%s) failed: %v", tt.name, err)
			}
			if got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	v, err := s.version(context.Background())
	if err != nil {
		t.Fatalf("version() failed: %v", err)
	}
	if v != schemaVersion {
		t.Errorf("user_version = %d, want %d", v, schemaVersion)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "snapshots.db")
	if _, err := Open(path); err == nil {
		t.Error("Open() into a missing directory should fail")
	}
}

func TestOpenContext_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	if _, err := OpenContext(ctx, path); err == nil {
		t.Error("OpenContext() with a canceled context should fail")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty store = %v, want nil", err)
	}
}
