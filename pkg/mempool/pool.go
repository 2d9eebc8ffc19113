package mempool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/riverstonedb/mempool/internal/debug"
	"github.com/riverstonedb/mempool/pkg/arena"
	"github.com/riverstonedb/mempool/pkg/opt"
	"github.com/riverstonedb/mempool/pkg/res"
)

// DefaultName is the diagnostic name a [Pool] gets when no [WithName]
// option is supplied.
const DefaultName = "Memory Pool"

// MaxCapacity is the largest capacity [New] will attempt to back with an
// arena before reporting [OutOfMemoryError]. See OutOfMemoryError's doc
// comment for why this ceiling, rather than an actual failed allocation,
// is what triggers the error.
const MaxCapacity = 1 << 40 // 1 TiB

// config collects the optional parameters [New] accepts.
type config struct {
	name         opt.Option[string]
	handleSource HandleSource
}

// Option configures a [Pool] at construction time.
type Option func(*config)

// WithName sets the pool's diagnostic name, overriding [DefaultName].
func WithName(name string) Option {
	return func(c *config) { c.name = opt.Some(name) }
}

// WithHandleSource overrides the pool's [HandleSource].
//
// Production code rarely needs this (the default [RandomHandleSource] is
// fine); tests inject a [CounterHandleSource] to get predictable handle
// values.
func WithHandleSource(s HandleSource) Option {
	return func(c *config) { c.handleSource = s }
}

// Pool is a fixed-capacity, byte-addressable memory pool.
//
// A Pool is safe for concurrent use by multiple goroutines: commit
// (including any compaction it triggers) and release are serialized by a
// single mutex, and read also takes the mutex so it cannot observe bytes
// mid-relocation during a concurrent tier-2 compaction.
type Pool struct {
	mu sync.Mutex

	arena    *arena.Arena
	name     string
	handles  HandleSource
	free     freeList
	used     usedTable
	counters counters

	// availBytes mirrors free.total() but is updated atomically so that
	// AvailableSpace can be read without taking mu, per the pool's
	// diagnostics-only concurrency contract.
	availBytes atomic.Int64
}

// New constructs a Pool with the given fixed capacity.
//
// capacity must be strictly positive or New returns an
// [InvalidCapacityError]. A capacity above [MaxCapacity] returns an
// [OutOfMemoryError] instead of attempting the allocation.
func New(capacity int, opts ...Option) (*Pool, error) {
	if capacity <= 0 {
		return nil, &InvalidCapacityError{Capacity: capacity}
	}

	if capacity > MaxCapacity {
		return nil, &OutOfMemoryError{Capacity: capacity}
	}

	var cfg config
	for _, o := range opts {
		o(&cfg)
	}

	handles := cfg.handleSource
	if handles == nil {
		handles = NewRandomHandleSource()
	}

	p := &Pool{
		arena:   arena.New(capacity),
		name:    cfg.name.UnwrapOr(DefaultName),
		handles: handles,
		free:    freeList{{start: 0, length: capacity}},
		used:    make(usedTable),
	}
	p.availBytes.Store(int64(capacity))

	return p, nil
}

// Size returns the pool's fixed capacity in bytes.
func (p *Pool) Size() int { return p.arena.Cap() }

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string { return p.name }

func (p *Pool) String() string {
	return fmt.Sprintf("Pool(%q, size=%d, available=%d)", p.name, p.Size(), p.AvailableSpace())
}

// GoString renders a Go-syntax-like representation of the pool, including
// the live statistics, for use by %#v in test failure output and debug
// logs.
func (p *Pool) GoString() string {
	s := p.Stats()
	return fmt.Sprintf(
		"mempool.Pool{name: %q, size: %d, available: %d, commits: %d, failedCommits: %d, reads: %d, releases: %d}",
		s.Name, s.Size, p.AvailableSpace(), s.Commits, s.FailedCommits, s.Reads, s.Releases,
	)
}

// AvailableSpace returns the sum of free-segment lengths.
//
// It does not acquire the pool's lock: a concurrent commit or release may
// make this value stale the instant it is returned, which is acceptable
// for a diagnostic reading.
func (p *Pool) AvailableSpace() int { return int(p.availBytes.Load()) }

// Commit copies data into the arena and returns a fresh [Handle] for it.
//
// A zero-length data succeeds even when AvailableSpace is 0: it consumes
// no arena bytes and records a used segment of length 0. Otherwise Commit
// tries, in order: the first-fit fast path, a cheap free-space upper
// bound check, tier-1 coalescing compaction, then tier-2 relocation
// compaction — failing with [OutOfSpaceError] only if none of those let
// the request fit.
func (p *Pool) Commit(data []byte) res.Result[Handle] {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(data)

	ctx := []any{"%q", p.name}

	if n == 0 {
		h := p.handles.Next()
		p.used.record(h, segment{start: 0, length: 0})
		p.counters.commits.Add(1)
		debug.Log(ctx, "commit", "%v: zero-length", h)
		return res.Ok(h)
	}

	if start, ok := p.tryFit(n); ok {
		return res.Ok(p.finishCommit(start, n, data))
	}

	if avail := p.free.total(); avail < n {
		p.counters.failedCommits.Add(1)
		debug.Log(ctx, "commit", "out of space: need %d, have %d", n, avail)
		return res.Err[Handle](&OutOfSpaceError{Requested: n, Available: avail})
	}

	p.free.coalesce()
	p.counters.l1Compaction.Add(1)
	debug.Log(ctx, "l1compact", "%v", debug.Dict("free", "segments", len(p.free), "bytes", p.free.total()))

	if start, ok := p.tryFit(n); ok {
		return res.Ok(p.finishCommit(start, n, data))
	}

	p.relocate()
	p.counters.l2Compaction.Add(1)
	debug.Log(ctx, "l2compact", "%v", debug.Dict("relocated", "live", len(p.used), "freed", p.free.total()))

	if start, ok := p.tryFit(n); ok {
		return res.Ok(p.finishCommit(start, n, data))
	}

	avail := p.free.total()
	p.counters.failedCommits.Add(1)
	debug.Log(ctx, "commit", "out of space after compaction: need %d, have %d", n, avail)
	return res.Err[Handle](&OutOfSpaceError{Requested: n, Available: avail})
}

// tryFit attempts the first-fit fast path, updating availBytes on
// success.
func (p *Pool) tryFit(n int) (start int, ok bool) {
	idx, ok := p.free.findFit(n)
	if !ok {
		return 0, false
	}

	start = p.free.take(idx, n)
	p.availBytes.Add(-int64(n))
	return start, true
}

// finishCommit writes data at start, mints a handle, and records the used
// segment.
func (p *Pool) finishCommit(start, n int, data []byte) Handle {
	p.arena.WriteAt(start, data)

	h := p.handles.Next()
	p.used.record(h, segment{start: start, length: n})
	p.counters.commits.Add(1)

	debug.Log([]any{"%q", p.name}, "commit", "%v: [%d:%d)", h, start, start+n)
	return h
}

// Read returns a fresh copy of the payload stored under handle.
func (p *Pool) Read(h Handle) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.counters.readLocks.Add(1)

	seg, ok := p.used.get(h)
	if !ok {
		return nil, &InvalidHandleError{Handle: h}
	}

	data := p.arena.ReadAt(seg.start, seg.length)
	p.counters.reads.Add(1)

	debug.Log([]any{"%q", p.name}, "read", "%v: [%d:%d)", h, seg.start, seg.end())
	return data, nil
}

// Release returns handle's segment to the free sequence.
//
// Released segments are appended unsorted; merging them back with their
// neighbors is deferred to tier-1 compaction, keeping Release O(1).
func (p *Pool) Release(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg, ok := p.used.drop(h)
	if !ok {
		return &InvalidHandleError{Handle: h}
	}

	p.free.release(seg)
	p.availBytes.Add(int64(seg.length))
	p.counters.releases.Add(1)

	debug.Log([]any{"%q", p.name}, "release", "%v: [%d:%d)", h, seg.start, seg.end())
	return nil
}
