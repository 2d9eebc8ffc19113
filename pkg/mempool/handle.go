package mempool

import (
	"fmt"
	"sync/atomic"

	"github.com/dolthub/maphash"
)

// Handle is an opaque identifier returned by [Pool.Commit] and consumed by
// [Pool.Read] and [Pool.Release].
//
// A Handle is valid from the moment Commit returns it until the matching
// Release. The pool never re-issues a Handle; guarding against collisions
// between two live handles, in the astronomically unlikely case the
// injected [HandleSource] produces one, is the HandleSource's job, not the
// pool's.
type Handle uint64

func (h Handle) String() string { return fmt.Sprintf("handle(%016x)", uint64(h)) }

// HandleSource mints the 64-bit identifiers a [Pool] hands out at commit
// time.
//
// Implementations must return integers drawn from a space large enough
// that collisions with live handles are negligible for the pool's expected
// working-set size. Keeping this behind an interface makes the pool
// deterministic in tests (inject a [CounterHandleSource]) while letting
// production code inject a higher-entropy source.
type HandleSource interface {
	// Next returns the next handle to mint. Called once per successful
	// Commit, including zero-length commits, while the pool's lock is
	// held.
	Next() Handle
}

// RandomHandleSource is the default [HandleSource].
//
// It hashes a monotonically increasing counter with a randomly seeded
// [maphash.Hasher], which scatters the resulting handles across the full
// 64-bit space without pulling in math/rand.
type RandomHandleSource struct {
	hasher  maphash.Hasher[uint64]
	counter atomic.Uint64
}

// NewRandomHandleSource constructs a [RandomHandleSource] with a fresh,
// process-local hash seed.
func NewRandomHandleSource() *RandomHandleSource {
	return &RandomHandleSource{hasher: maphash.NewHasher[uint64]()}
}

// Next returns the next scattered handle.
func (s *RandomHandleSource) Next() Handle {
	n := s.counter.Add(1)
	return Handle(s.hasher.Hash(n))
}

// CounterHandleSource is a deterministic [HandleSource] that mints
// sequential handles starting at 1.
//
// It exists so tests (here and in callers) don't depend on the scattering
// behavior of [RandomHandleSource] to assert on specific handle values.
type CounterHandleSource struct {
	next atomic.Uint64
}

// Next returns the next sequential handle, starting at 1 so the zero
// Handle is never minted and can be safely used as a caller-side sentinel
// for "no handle".
func (s *CounterHandleSource) Next() Handle {
	return Handle(s.next.Add(1))
}
