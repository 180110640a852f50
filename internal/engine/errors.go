package engine

import (
	"errors"
	"fmt"
)

// ErrCorruptCache is returned by LoadCache when persisted data was rejected.
// The engine has discarded it and will recompute from scratch; callers
// usually only log it.
var ErrCorruptCache = errors.New("persisted cache discarded")

// IsCorrupt reports whether err means a persisted cache was discarded.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptCache)
}

// FatalError is the panic value for internal invariant violations. These
// are programming errors, not recoverable conditions; the engine panics
// with a *FatalError rather than returning it.
//
// Fatal faults include:
//   - an entry whose changedAt is past its verifiedAt
//   - two distinct query kinds registered under one name
//   - concurrent use of a single engine
//   - mutating inputs while a query is executing
//   - use of a closed engine
type FatalError struct {
	// Code identifies the fault category.
	Code FatalCode

	// Message is a human-readable description.
	Message string

	// Query is the descriptor involved, if any.
	Query string
}

// FatalCode categorizes fatal faults.
type FatalCode string

const (
	// FatalInvariant indicates corrupted revision bookkeeping.
	FatalInvariant FatalCode = "INVARIANT_VIOLATION"

	// FatalKindConflict indicates a query kind name registered twice.
	FatalKindConflict FatalCode = "KIND_CONFLICT"

	// FatalConcurrentUse indicates two goroutines entered one engine.
	FatalConcurrentUse FatalCode = "CONCURRENT_USE"

	// FatalInputDuringQuery indicates a revision change from inside a query.
	FatalInputDuringQuery FatalCode = "INPUT_DURING_QUERY"

	// FatalClosed indicates use after Close.
	FatalClosed FatalCode = "ENGINE_CLOSED"
)

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("%s: %s (query=%s)", e.Code, e.Message, e.Query)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsFatal reports whether v, typically a recovered panic value, is a
// *FatalError with the given code.
func IsFatal(v any, code FatalCode) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

func fatal(code FatalCode, query, format string, args ...any) {
	panic(&FatalError{Code: code, Query: query, Message: fmt.Sprintf(format, args...)})
}
