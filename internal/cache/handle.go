package cache

import (
	"sync"

	"github.com/google/uuid"
)

// HandleGenerator generates unique handles for optimistic layers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
// The generator is owned by the cache instance, so multiple caches in one
// process never collide and tests run in isolation.
type HandleGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 layer handles.
//
// UUIDv7 embeds a timestamp in the most significant bits, making handles
// sortable by creation time, which is helpful when debugging layer
// composition order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined handles for testing.
//
// This enables deterministic test execution and golden snapshot
// comparison: tests provide a known sequence of handles and verify exact
// layer behavior.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal
// mutex.
type FixedGenerator struct {
	mu      sync.Mutex
	handles []string
	idx     int
}

// NewFixedGenerator creates a generator that returns handles in order.
//
// Example:
//
//	gen := NewFixedGenerator("layer-1", "layer-2")
//	gen.Generate() // "layer-1"
//	gen.Generate() // "layer-2"
//	gen.Generate() // panic: all handles exhausted
func NewFixedGenerator(handles ...string) *FixedGenerator {
	return &FixedGenerator{handles: handles}
}

// Generate returns the next predetermined handle.
//
// Panics if all handles have been consumed. This is a fail-fast approach
// to catch test misconfiguration (test added more layers than expected).
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.handles) {
		panic("FixedGenerator: all handles exhausted")
	}
	handle := g.handles[g.idx]
	g.idx++
	return handle
}
