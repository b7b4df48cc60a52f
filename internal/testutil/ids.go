package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable table identities for tests.
//
// IDs are "<prefix>-0001", "<prefix>-0002", ... so golden traces and
// assertions do not depend on UUID randomness. Implements
// table.IDGenerator.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequentialIDs creates a generator. An empty prefix means "table".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "table"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// Issued returns how many IDs have been generated.
func (g *SequentialIDs) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence. The next Generate returns "<prefix>-0001".
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
