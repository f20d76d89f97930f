package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates "prefix-1", "prefix-2", ... for tests.
//
// Unlike editor.FixedGenerator it never runs out, and it can be reset so
// the same scenario produces identical history ids on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequentialIDs creates a generator. An empty prefix uses "entry".
//
// The first call to Generate() returns "<prefix>-1".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "entry"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
//
// Implements editor.EntryIDGenerator.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Current returns the number of ids handed out.
func (g *SequentialIDs) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. After Reset(), Generate() returns "<prefix>-1".
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}

// Func adapts the generator to the func form taken by store.WithRevisionIDs.
func (g *SequentialIDs) Func() func() string {
	return g.Generate
}
