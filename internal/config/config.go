// Package config loads session configuration written in CUE.
//
// A configuration file is unified with an embedded schema that supplies
// defaults and rejects unknown fields:
//
//	cache: path: "build/incr.cache"
//	gc: policy: "explicit"
//	log: level: "debug"
//
// Every field is optional. Load with an empty path returns Default.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/incr/internal/engine"
	"github.com/roach88/incr/internal/report"
)

//go:embed schema.cue
var schemaCUE string

// Config is a resolved session configuration.
type Config struct {
	Cache  CacheConfig
	GC     GCConfig
	Log    LogConfig
	Report ReportConfig
}

// CacheConfig says where the persisted cache lives.
type CacheConfig struct {
	Path     string
	Store    string
	Snapshot string
}

// UseStore reports whether the cache is kept in the snapshot store.
func (c CacheConfig) UseStore() bool {
	return c.Store != ""
}

// GCConfig selects the garbage-collection policy.
type GCConfig struct {
	Policy engine.GCPolicy
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level slog.Level
}

// ReportConfig selects the diagnostic output style.
type ReportConfig struct {
	Mode report.Mode
}

// Default returns the configuration used when no file is given. It matches
// the schema defaults.
func Default() Config {
	return Config{
		Cache:  CacheConfig{Path: ".incr/cache.bin", Snapshot: "default"},
		GC:     GCConfig{Policy: engine.GCOnRevision},
		Log:    LogConfig{Level: slog.LevelInfo},
		Report: ReportConfig{Mode: report.Brief},
	}
}

// Load reads the configuration at path. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(path, data)
}

// Parse resolves a configuration from CUE source. filename is used in
// error positions.
func Parse(filename string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("config schema: %w", err)
	}

	user := ctx.CompileBytes(data, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}
	return decode(v)
}

func decode(v cue.Value) (Config, error) {
	var (
		cfg  Config
		errs []error
	)
	str := func(path string) string {
		s, err := v.LookupPath(cue.ParsePath(path)).String()
		if err != nil {
			errs = append(errs, formatCUEError(err))
		}
		return s
	}

	cfg.Cache.Path = str("cache.path")
	cfg.Cache.Store = str("cache.store")
	cfg.Cache.Snapshot = str("cache.snapshot")
	policy := str("gc.policy")
	level := str("log.level")
	mode := str("report.mode")
	if len(errs) > 0 {
		return Config{}, errs[0]
	}

	var err error
	if cfg.GC.Policy, err = engine.ParseGCPolicy(policy); err != nil {
		return Config{}, &Error{Field: "gc.policy", Message: err.Error()}
	}
	if err := cfg.Log.Level.UnmarshalText([]byte(level)); err != nil {
		return Config{}, &Error{Field: "log.level", Message: err.Error()}
	}
	if cfg.Report.Mode, err = report.ParseMode(mode); err != nil {
		return Config{}, &Error{Field: "report.mode", Message: err.Error()}
	}
	return cfg, nil
}

// Error is a configuration problem with its source position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &Error{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &Error{Field: "cue", Message: first.Error()}
}
