package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/incr/internal/store"
)

// SnapshotsOptions holds flags for the snapshots commands.
type SnapshotsOptions struct {
	*RootOptions
	Store string // overrides cache.store from the configuration
	Keep  int    // snapshots kept by prune
}

// SnapshotInfo is the JSON form of a stored snapshot.
type SnapshotInfo struct {
	Name     string `json:"name"`
	Seq      int64  `json:"seq"`
	Session  string `json:"session"`
	Version  uint64 `json:"version"`
	Checksum string `json:"checksum"`
	Entries  int    `json:"entries"`
	Revision int64  `json:"revision"`
	Size     int    `json:"size"`
}

// NewSnapshotsCommand creates the snapshots command and its subcommands.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Manage the snapshot store",
		Long: `List, delete or prune the query caches kept in the SQLite snapshot store.

The store is cache.store from the configuration unless --store is given.

Examples:
  incr snapshots list --store .incr/snapshots.db
  incr snapshots delete default --config incr.cue
  incr snapshots prune --keep 3 --store .incr/snapshots.db`,
	}
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "path to the snapshot store")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a stored snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsDelete(opts, args[0], cmd)
		},
	})
	prune := &cobra.Command{
		Use:           "prune",
		Short:         "Delete all but the most recent snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotsPrune(opts, cmd)
		},
	}
	prune.Flags().IntVar(&opts.Keep, "keep", 1, "number of snapshots to keep")
	cmd.AddCommand(prune)
	return cmd
}

// openSnapshotStore resolves the store path from the flag or the
// configuration.
func openSnapshotStore(opts *SnapshotsOptions, cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return nil, err
	}
	path := opts.Store
	if path == "" {
		path = cfg.Cache.Store
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no snapshot store configured (set cache.store or --store)")
	}
	st, err := openStore(path, newLogger(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open snapshot store", err)
	}
	return st, nil
}

func runSnapshotsList(opts *SnapshotsOptions, cmd *cobra.Command) error {
	st, err := openSnapshotStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list snapshots", err)
	}

	infos := make([]SnapshotInfo, len(snaps))
	for i, s := range snaps {
		infos[i] = SnapshotInfo{
			Name:     s.Name,
			Seq:      s.Seq,
			Session:  s.SessionID,
			Version:  s.Version,
			Checksum: fmt.Sprintf("%016x", s.Checksum),
			Entries:  s.Entries,
			Revision: s.Revision,
			Size:     s.Size,
		}
	}

	out := formatterFor(opts.RootOptions, cmd)
	if out.IsJSON() {
		return out.Encode(CLIResponse{Status: "ok", Data: infos})
	}
	if len(infos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSEQ\tENTRIES\tSIZE\tSESSION")
	for _, s := range infos {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Name, s.Seq, s.Entries, s.Size, s.Session)
	}
	return tw.Flush()
}

func runSnapshotsDelete(opts *SnapshotsOptions, name string, cmd *cobra.Command) error {
	st, err := openSnapshotStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	out := formatterFor(opts.RootOptions, cmd)
	if err := st.DeleteSnapshot(cmd.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = out.Error("E_NOT_FOUND", fmt.Sprintf("no snapshot named %q", name), nil)
			return WrapExitError(ExitFailure, fmt.Sprintf("no snapshot named %q", name), err)
		}
		return WrapExitError(ExitCommandError, "failed to delete snapshot", err)
	}

	if out.IsJSON() {
		return out.Encode(CLIResponse{Status: "ok", Data: map[string]string{"deleted": name}})
	}
	return out.Success(fmt.Sprintf("Deleted snapshot %s", name))
}

func runSnapshotsPrune(opts *SnapshotsOptions, cmd *cobra.Command) error {
	if opts.Keep < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--keep must be non-negative, got %d", opts.Keep))
	}
	st, err := openSnapshotStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.PruneSnapshots(cmd.Context(), opts.Keep)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to prune snapshots", err)
	}

	out := formatterFor(opts.RootOptions, cmd)
	if out.IsJSON() {
		return out.Encode(CLIResponse{Status: "ok", Data: map[string]int{"deleted": n, "kept": opts.Keep}})
	}
	return out.Success(fmt.Sprintf("Deleted %d snapshot(s)", n))
}
