package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/incr/internal/engine"
)

func TestSessionSequence_Numbers(t *testing.T) {
	seq := NewSessionSequence("harness")
	assert.Equal(t, "", seq.Current())
	assert.Equal(t, "harness-1", seq.Generate())
	assert.Equal(t, "harness-2", seq.Generate())
	assert.Equal(t, "harness-2", seq.Current())
}

func TestSessionSequence_EmptyPrefixDefault(t *testing.T) {
	seq := NewSessionSequence("")
	assert.Equal(t, "test-session-1", seq.Generate())
}

func TestSessionSequence_Reset(t *testing.T) {
	seq := NewSessionSequence("s")
	seq.Generate()
	seq.Generate()
	seq.Reset()
	assert.Equal(t, "s-1", seq.Generate())
}

func TestSessionSequence_DrivesEngine(t *testing.T) {
	seq := NewSessionSequence("eng")
	var _ engine.SessionGenerator = seq

	e := engine.New(engine.WithSessionGenerator(seq))
	defer e.Close()
	assert.Equal(t, "eng-1", e.SessionID())
}

func TestSessionSequence_ThreadSafe(t *testing.T) {
	seq := NewSessionSequence("c")

	var wg sync.WaitGroup
	seen := make(chan string, 1000)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seen <- seq.Generate()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[string]bool)
	for id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 1000)
	assert.Equal(t, "c-1000", seq.Current())
}
