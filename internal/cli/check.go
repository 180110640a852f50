package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/incr/internal/decls"
	"github.com/roach88/incr/internal/diag"
	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/metrics"
	"github.com/roach88/incr/internal/report"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Mode     string // report mode override: "brief" | "detailed"
	Bindings bool   // print the checked declarations
	NoCache  bool   // neither load nor save the query cache
	Metrics  string // write Prometheus text metrics to this file

	// SessionGenerator allows overriding the session id generator (for testing).
	// If nil, the engine generates UUIDv7 ids.
	SessionGenerator engine.SessionGenerator
}

// FileResult is the JSON form of one checked file.
type FileResult struct {
	Path     string   `json:"path"`
	Bindings []string `json:"bindings"`
}

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Files       []FileResult    `json:"files"`
	Diagnostics []report.Record `json:"diagnostics"`
	Errors      int             `json:"errors"`
	Warnings    int             `json:"warnings"`
	Executions  int64           `json:"executions"`
	Loaded      int             `json:"loaded"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <files...>",
		Short: "Check declaration files",
		Long: `Check declaration files and report their diagnostics.

The files form one project, checked in the order given; a file's module is
its base name up to the first dot. The query cache from the previous run is
loaded first and saved afterwards, to the cache file or the snapshot store
named by the configuration.

Exit codes:
  0 - No errors
  1 - Errors were reported
  2 - Command error (unreadable file, bad config, etc.)

Examples:
  incr check shapes.decl main.decl
  incr check --mode detailed *.decl
  incr check --config incr.cue --metrics incr.prom *.decl`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "", "report mode (brief|detailed); defaults to the configuration")
	cmd.Flags().BoolVar(&opts.Bindings, "bindings", false, "print the checked declarations")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "do not load or save the query cache")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write Prometheus text metrics to this file")

	return cmd
}

func runCheck(opts *CheckOptions, files []string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	mode := cfg.Report.Mode
	if opts.Mode != "" {
		if mode, err = report.ParseMode(opts.Mode); err != nil {
			return WrapExitError(ExitCommandError, "invalid --mode", err)
		}
	}

	sources := make(map[string]string, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read %s", path), err)
		}
		sources[path] = string(data)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)
	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithGCPolicy(cfg.GC.Policy),
		engine.WithQueries(decls.Kinds()...),
	}
	if opts.SessionGenerator != nil {
		engineOpts = append(engineOpts, engine.WithSessionGenerator(opts.SessionGenerator))
	}
	e := engine.New(engineOpts...)
	defer e.Close()
	locator := decls.NewLocator(e)
	e.SetLocator(locator)

	var cache cacheBackend
	loaded := 0
	if !opts.NoCache {
		if cache, err = openCache(cfg.Cache, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to open cache", err)
		}
		defer cache.Close()
		loaded = loadCache(cmd, e, cache, logger)
	}

	for _, path := range files {
		decls.SetSource(e, path, sources[path])
	}
	decls.SetFiles(e, files...)

	result := CheckResult{Files: make([]FileResult, 0, len(files)), Loaded: loaded}
	bag := diag.NewBag()
	for _, path := range files {
		name := e.Intern(path)
		bs := decls.Check.Get(e, name)
		fr := FileResult{Path: path, Bindings: make([]string, len(bs))}
		for i, b := range bs {
			fr.Bindings[i] = b.String()
		}
		result.Files = append(result.Files, fr)
		bag.AddAll(decls.Check.CollectDiagnostics(e, name))
	}
	bag.AddAll(e.SessionDiagnostics())
	ds := bag.All()
	result.Executions = e.Stats().Executions

	if err := writeCheckOutput(opts, cmd, e, mode, locator, sources, ds, &result); err != nil {
		return err
	}

	if cache != nil {
		if err := saveCache(cmd, e, cache); err != nil {
			return WrapExitError(ExitCommandError, "failed to save cache", err)
		}
	}
	if opts.Metrics != "" {
		if err := writeMetrics(opts.Metrics, e.Snapshot()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if result.Errors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d error(s) reported", result.Errors))
	}
	return nil
}

// loadCache installs the saved cache. A missing or rejected cache only
// costs recomputation, so failures are logged and the check goes on.
func loadCache(cmd *cobra.Command, e *engine.Engine, cache cacheBackend, logger *slog.Logger) int {
	data, err := cache.Load(cmd.Context())
	if err != nil {
		logger.Warn("query cache unavailable", "cache", cache.String(), "error", err)
		return 0
	}
	if data == nil {
		logger.Debug("no query cache yet", "cache", cache.String())
		return 0
	}
	n, err := e.LoadCache(bytes.NewReader(data))
	if err != nil {
		logger.Warn("query cache rejected", "cache", cache.String(), "error", err)
		return 0
	}
	return n
}

func saveCache(cmd *cobra.Command, e *engine.Engine, cache cacheBackend) error {
	var buf bytes.Buffer
	if _, err := e.SaveCache(&buf); err != nil {
		return err
	}
	return cache.Save(cmd.Context(), buf.Bytes(), e.Revision())
}

func writeCheckOutput(opts *CheckOptions, cmd *cobra.Command, e *engine.Engine, mode report.Mode,
	locator engine.Locator, sources map[string]string, ds []diag.Diagnostic, result *CheckResult) error {
	out := formatterFor(opts.RootOptions, cmd)

	if out.IsJSON() {
		for _, d := range ds {
			switch {
			case d.Kind.IsError():
				result.Errors++
			case d.Kind == diag.KindWarning:
				result.Warnings++
			}
		}
		result.Diagnostics = report.Records(ds, locator)
		resp := CLIResponse{Status: "ok", Data: result, Session: e.SessionID()}
		if result.Errors > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    "E_CHECK_FAILED",
				Message: fmt.Sprintf("%d error(s) reported", result.Errors),
			}
		}
		return out.Encode(resp)
	}

	w := cmd.OutOrStdout()
	if opts.Bindings {
		for _, f := range result.Files {
			fmt.Fprintf(w, "%s:\n", f.Path)
			for _, b := range f.Bindings {
				fmt.Fprintf(w, "  %s\n", b)
			}
		}
	}
	rw := report.NewWriter(w, mode,
		report.WithLocator(locator),
		report.WithSource(func(path string) (string, bool) {
			text, ok := sources[path]
			return text, ok
		}),
	)
	if err := rw.WriteAll(ds); err != nil {
		return WrapExitError(ExitCommandError, "failed to write diagnostics", err)
	}
	result.Errors, result.Warnings = rw.Counts()
	if err := rw.Summary(); err != nil {
		return WrapExitError(ExitCommandError, "failed to write diagnostics", err)
	}
	out.VerboseLog("%d executions, %d entries loaded, session %s", result.Executions, result.Loaded, e.SessionID())
	return nil
}

// writeMetrics writes the engine counters in the Prometheus text format.
func writeMetrics(path string, snap engine.Snapshot) error {
	reg := prometheus.NewRegistry()
	c := metrics.NewCollector()
	reg.MustRegister(c)
	c.Observe(snap)

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, reg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
