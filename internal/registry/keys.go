package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// KeyGenerator produces candidate actor keys for NextFreshKey.
// Implemented by SequentialGenerator (default), UUIDv7Generator and
// FixedGenerator (tests).
type KeyGenerator interface {
	Generate() Key
}

// SequentialGenerator yields prefix1, prefix2, ... Deterministic, so runs that
// spawn actors stay reproducible.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialGenerator struct {
	mu     sync.Mutex
	prefix string
	n      uint64
}

// NewSequentialGenerator creates a generator whose first key is prefix+"1".
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next key in sequence.
func (g *SequentialGenerator) Generate() Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return Key(fmt.Sprintf("%s%d", g.prefix, g.n))
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// Keys are unique across processes but NOT reproducible between runs; use
// SequentialGenerator when traces must be replayed byte-for-byte.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 key.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() Key {
	return Key(uuid.Must(uuid.NewV7()).String())
}

// FixedGenerator returns predetermined keys in order.
//
// Panics once all keys have been consumed, which catches tests that spawn
// more actors than they expect.
type FixedGenerator struct {
	mu   sync.Mutex
	keys []Key
	idx  int
}

// NewFixedGenerator creates a generator that returns keys in order.
func NewFixedGenerator(keys ...Key) *FixedGenerator {
	return &FixedGenerator{keys: keys}
}

// Generate returns the next predetermined key.
func (g *FixedGenerator) Generate() Key {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedGenerator: all keys exhausted")
	}
	k := g.keys[g.idx]
	g.idx++
	return k
}
