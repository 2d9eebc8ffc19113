package mempool

import "sync/atomic"

// counters holds the pool's monotonically increasing statistics.
//
// Each field is an atomic.Uint64 so that [Pool.Stats] can be called
// without acquiring the pool's mutex: mutators always run with the lock
// held (serializing them against each other), while readers may observe a
// torn-free but possibly stale snapshot, which is exactly the
// eventually-consistent contract the statistics are documented to have.
type counters struct {
	commits       atomic.Uint64
	failedCommits atomic.Uint64
	reads         atomic.Uint64
	readLocks     atomic.Uint64
	l1Compaction  atomic.Uint64
	l2Compaction  atomic.Uint64
	releases      atomic.Uint64
}

// Stats is a point-in-time copy of a [Pool]'s observable statistics, used
// to diagnose fragmentation behavior. Stats are not part of correctness.
type Stats struct {
	Name          string
	Size          int
	Commits       uint64
	FailedCommits uint64
	Reads         uint64
	ReadLocks     uint64
	L1Compaction  uint64
	L2Compaction  uint64
	Releases      uint64
}

// Stats returns a snapshot of the pool's current statistics.
func (p *Pool) Stats() Stats {
	return Stats{
		Name:          p.name,
		Size:          p.arena.Cap(),
		Commits:       p.counters.commits.Load(),
		FailedCommits: p.counters.failedCommits.Load(),
		Reads:         p.counters.reads.Load(),
		ReadLocks:     p.counters.readLocks.Load(),
		L1Compaction:  p.counters.l1Compaction.Load(),
		L2Compaction:  p.counters.l2Compaction.Load(),
		Releases:      p.counters.releases.Load(),
	}
}
