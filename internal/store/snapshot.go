package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/incr/internal/cachefile"
)

// ErrNotFound is returned when no snapshot has the requested name.
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is one stored cache. Data is the complete cache file; the other
// fields repeat its header so snapshots can be listed cheaply.
type Snapshot struct {
	Name      string
	Seq       int64
	SessionID string
	Version   uint64
	Checksum  uint64
	Entries   int
	Revision  int64
	Size      int
	Data      []byte
}

// NewSnapshot describes data, a cache file, for saving under name.
// revision is the engine revision the cache was taken at.
func NewSnapshot(name string, data []byte, revision int64) (Snapshot, error) {
	h, err := cachefile.ReadHeader(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %q: %w", name, err)
	}
	return Snapshot{
		Name:      name,
		SessionID: h.SessionID,
		Version:   h.Version,
		Checksum:  h.Checksum,
		Entries:   h.Entries,
		Revision:  revision,
		Size:      len(data),
		Data:      data,
	}, nil
}

// SaveSnapshot stores snap under snap.Name, replacing any snapshot of that
// name. It returns the seq assigned to the snapshot.
//
// The header fields of snap are taken from its data; only Name and
// Revision are read from snap itself.
func (s *Store) SaveSnapshot(ctx context.Context, snap Snapshot) (int64, error) {
	if snap.Name == "" {
		return 0, errors.New("save snapshot: empty name")
	}
	full, err := NewSnapshot(snap.Name, snap.Data, snap.Revision)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM snapshots`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("save snapshot: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots
		(name, seq, session_id, format_version, checksum, entries, revision, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			seq = excluded.seq,
			session_id = excluded.session_id,
			format_version = excluded.format_version,
			checksum = excluded.checksum,
			entries = excluded.entries,
			revision = excluded.revision,
			data = excluded.data
	`,
		full.Name,
		seq,
		full.SessionID,
		int64(full.Version),
		formatChecksum(full.Checksum),
		full.Entries,
		full.Revision,
		full.Data,
	)
	if err != nil {
		return 0, fmt.Errorf("save snapshot %q: %w", snap.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save snapshot %q: commit: %w", snap.Name, err)
	}
	return seq, nil
}

// LoadSnapshot returns the snapshot stored under name, data included.
// It returns an error wrapping ErrNotFound if there is none.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, seq, session_id, format_version, checksum, entries, revision, length(data), data
		FROM snapshots
		WHERE name = ?
	`, name)

	snap, err := scanSnapshot(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return snap, nil
}

// ListSnapshots returns every snapshot without its data, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, seq, session_id, format_version, checksum, entries, revision, length(data)
		FROM snapshots
		ORDER BY seq ASC, name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows, false)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// DeleteSnapshot removes the snapshot stored under name.
// It returns an error wrapping ErrNotFound if there is none.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete snapshot %q: %w", name, ErrNotFound)
	}
	return nil
}

// PruneSnapshots deletes every snapshot except the keep most recently
// saved, and returns how many were deleted.
func (s *Store) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("prune snapshots: negative keep %d", keep)
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE name NOT IN (
			SELECT name FROM snapshots ORDER BY seq DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		s.logger.Info("snapshots pruned", "path", s.path, "deleted", n, "kept", keep)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner, withData bool) (Snapshot, error) {
	var (
		snap     Snapshot
		version  int64
		checksum string
	)
	dest := []any{
		&snap.Name,
		&snap.Seq,
		&snap.SessionID,
		&version,
		&checksum,
		&snap.Entries,
		&snap.Revision,
		&snap.Size,
	}
	if withData {
		dest = append(dest, &snap.Data)
	}
	if err := row.Scan(dest...); err != nil {
		return Snapshot{}, err
	}

	sum, err := strconv.ParseUint(checksum, 16, 64)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %q: bad checksum %q: %w", snap.Name, checksum, err)
	}
	snap.Version = uint64(version)
	snap.Checksum = sum
	return snap, nil
}

func formatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}
