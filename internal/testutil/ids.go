package testutil

import (
	"fmt"
	"sync"
	"time"
)

// SequenceIDGenerator hands out resolution ids "res-0001", "res-0002", ...
//
// It makes diagnostics and history rows reproducible so golden output stays
// byte-identical between runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequenceIDGenerator creates a generator. An empty prefix means "res".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "res"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements resolve.IDGenerator.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%04d", g.prefix, g.seq)
}

// Reset restarts the sequence at 1.
func (g *SequenceIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

// NewFixedClock returns a clock frozen at 2024-01-01T00:00:00Z.
func NewFixedClock() FixedClock {
	return FixedClock{At: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now implements store.Clock.
func (c FixedClock) Now() time.Time {
	return c.At
}
