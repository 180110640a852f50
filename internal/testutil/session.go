package testutil

import (
	"fmt"
	"sync"
)

// SessionSequence hands out numbered session ids: prefix-1, prefix-2, ...
//
// Engines built from the same sequence in the same order get the same ids
// on every run, which keeps saved caches and golden output byte-identical.
// A harness restarting its engine mid-scenario draws the next id, so the
// cache header shows which engine wrote it.
//
// Thread-safety: all methods are safe for concurrent use.
type SessionSequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSessionSequence creates a sequence. An empty prefix becomes "test-session".
func NewSessionSequence(prefix string) *SessionSequence {
	if prefix == "" {
		prefix = "test-session"
	}
	return &SessionSequence{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.SessionGenerator.
func (s *SessionSequence) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// Current returns the last id handed out, or "" before the first Generate.
func (s *SessionSequence) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", s.prefix, s.n)
}

// Reset restarts the sequence. The next Generate returns prefix-1.
func (s *SessionSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n = 0
}
