// Package mempool implements a fixed-capacity, byte-addressable memory
// pool for a data-processing engine's intermediate byte payloads.
//
// A Pool pre-allocates a single [github.com/riverstonedb/mempool/pkg/arena.Arena]
// of fixed capacity and lets callers commit opaque []byte payloads into it,
// getting back an opaque [Handle] that is later used to read the payload
// back or release it. The hard part is fragmentation control: as commits
// and releases interleave, free space becomes scattered, so Commit falls
// back to a two-tier compactor (cheap adjacent-run coalescing, then
// expensive payload relocation) before declaring the arena full.
//
// The pool does not grow its arena, does not defragment in the background,
// and does not persist across process restarts; the full list of
// non-goals is in SPEC_FULL.md at the repository root.
package mempool
