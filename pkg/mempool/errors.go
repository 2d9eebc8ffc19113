package mempool

import "fmt"

// InvalidCapacityError is returned by [New] when asked to construct a pool
// with a non-positive capacity.
type InvalidCapacityError struct {
	Capacity int
}

func (e *InvalidCapacityError) Error() string {
	return fmt.Sprintf("mempool: invalid capacity %d: must be positive", e.Capacity)
}

// OutOfMemoryError is returned by [New] when the host cannot provide a
// backing buffer of the requested capacity.
//
// Go's allocator does not expose a recoverable allocation-failure signal
// the way calloc(3) does; make([]byte, capacity) simply panics or the OS
// kills the process under true memory exhaustion. To keep construction a
// well-behaved, always-recoverable operation, New instead treats any
// capacity above [MaxCapacity] as unserviceable and reports it as
// OutOfMemory before ever attempting the allocation.
type OutOfMemoryError struct {
	Capacity int
}

func (e *OutOfMemoryError) Error() string {
	return fmt.Sprintf("mempool: cannot provide a %d byte arena (exceeds %d byte ceiling)", e.Capacity, MaxCapacity)
}

// OutOfSpaceError is returned by [Pool.Commit] when a commit cannot be
// serviced even after tier-2 compaction.
//
// This is ordinary control flow, not a programmer error: callers are
// expected to handle it routinely, e.g. by spilling to another storage
// tier. It is reported through [github.com/riverstonedb/mempool/pkg/res.Result]
// rather than as a Go error returned alongside a zero Handle, so a caller
// cannot mistake a failed commit's zero value for a real one.
type OutOfSpaceError struct {
	Requested int
	Available int
}

func (e *OutOfSpaceError) Error() string {
	return fmt.Sprintf("mempool: out of space: requested %d bytes, %d available", e.Requested, e.Available)
}

// InvalidHandleError is returned by [Pool.Read] and [Pool.Release] when
// given a handle that is not currently present in the pool's used-segment
// table.
//
// Unlike OutOfSpaceError, this indicates a bug in the caller: a handle
// that was never returned by Commit, or one that has already been
// released.
type InvalidHandleError struct {
	Handle Handle
}

func (e *InvalidHandleError) Error() string {
	return fmt.Sprintf("mempool: invalid handle %v", e.Handle)
}
