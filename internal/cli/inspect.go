package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/incr/internal/cachefile"
	"github.com/roach88/incr/internal/decls"
	"github.com/roach88/incr/internal/engine"
)

// InspectResult describes a cache file.
type InspectResult struct {
	Path     string         `json:"path"`
	Version  uint64         `json:"version"`
	Session  string         `json:"session"`
	Checksum string         `json:"checksum"`
	Size     int            `json:"size"`
	Strings  int            `json:"strings"`
	Entries  int            `json:"entries"`
	Kinds    map[string]int `json:"kinds"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <cache-file>",
		Short: "Describe a query cache file",
		Long: `Validate a query cache file and print its header, the size of its
string table and how many entries of each query kind it holds.

Exit codes:
  0 - The cache is valid
  1 - The cache is corrupt or from an unsupported format version
  2 - Command error (file not found, etc.)

Examples:
  incr inspect .incr/cache.bin
  incr inspect --format json .incr/cache.bin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := formatterFor(opts, cmd)

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
	}
	f, err := cachefile.Parse(data)
	if err != nil {
		_ = out.Error("E_CORRUPT_CACHE", err.Error(), map[string]string{"path": path})
		return WrapExitError(ExitFailure, fmt.Sprintf("invalid cache file %s", path), err)
	}

	kinds, err := countKinds(data, opts.Verbose, cmd.ErrOrStderr())
	if err != nil {
		_ = out.Error("E_CORRUPT_CACHE", err.Error(), map[string]string{"path": path})
		return WrapExitError(ExitFailure, fmt.Sprintf("invalid cache file %s", path), err)
	}

	result := InspectResult{
		Path:     path,
		Version:  f.Version,
		Session:  f.SessionID,
		Checksum: fmt.Sprintf("%016x", f.Checksum),
		Size:     len(data),
		Strings:  f.Header.Strings,
		Entries:  f.Entries,
		Kinds:    kinds,
	}
	if out.IsJSON() {
		return out.Encode(CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Cache file: %s\n", result.Path)
	fmt.Fprintf(w, "  version:  %d\n", result.Version)
	fmt.Fprintf(w, "  session:  %s\n", result.Session)
	fmt.Fprintf(w, "  checksum: %s\n", result.Checksum)
	fmt.Fprintf(w, "  size:     %d bytes\n", result.Size)
	fmt.Fprintf(w, "  strings:  %d\n", result.Strings)
	fmt.Fprintf(w, "  entries:  %d\n", result.Entries)
	if len(kinds) > 0 {
		fmt.Fprintln(w, "Entries by kind:")
		for _, k := range slices.Sorted(maps.Keys(kinds)) {
			fmt.Fprintf(w, "  %-16s %d\n", k, kinds[k])
		}
	}
	return nil
}

// countKinds loads data into a scratch engine and counts the installed
// entries of each kind.
func countKinds(data []byte, verbose bool, logs io.Writer) (map[string]int, error) {
	e := engine.New(
		engine.WithLogger(newLogger(logs, slog.LevelError, verbose)),
		engine.WithSessionID("inspect"),
		engine.WithQueries(decls.Kinds()...),
	)
	defer e.Close()

	if _, err := e.LoadCache(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	kinds := make(map[string]int)
	for name, n := range e.Snapshot().Kinds {
		if n > 0 {
			kinds[name] = n
		}
	}
	return kinds, nil
}
