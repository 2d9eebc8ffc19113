package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverstonedb/mempool/internal/debug"
	"github.com/riverstonedb/mempool/pkg/xerrors"
)

func newCountedPool(t *testing.T, capacity int) *Pool {
	t.Helper()

	p, err := New(capacity, WithHandleSource(new(CounterHandleSource)))
	assert.NoError(t, err)
	return p
}

func TestNewRejectsNonPositiveCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -100} {
		p, err := New(capacity)
		assert.Nil(t, p)

		var invalid *InvalidCapacityError
		assert.ErrorAs(t, err, &invalid)
		assert.Equal(t, capacity, invalid.Capacity)
	}
}

func TestNewRejectsCapacityAboveCeiling(t *testing.T) {
	p, err := New(MaxCapacity + 1)
	assert.Nil(t, p)

	var oom *OutOfMemoryError
	assert.ErrorAs(t, err, &oom)
}

func TestNewDefaultsNameAndAcceptsOverride(t *testing.T) {
	p, err := New(8)
	assert.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name())

	named, err := New(8, WithName("scratch pool"))
	assert.NoError(t, err)
	assert.Equal(t, "scratch pool", named.Name())
}

func TestBoundaryZeroLengthCommitSucceedsWhenFull(t *testing.T) {
	p := newCountedPool(t, 4)

	h1 := p.Commit([]byte("AAAA")).Unwrap()
	assert.Equal(t, 0, p.AvailableSpace())

	h2 := p.Commit(nil).Unwrap()

	got, err := p.Read(h2)
	assert.NoError(t, err)
	assert.Empty(t, got)

	_, err = p.Read(h1)
	assert.NoError(t, err)
}

func TestBoundaryExactCapacityCommitFillsPool(t *testing.T) {
	p := newCountedPool(t, 10)

	p.Commit([]byte("0123456789")).Unwrap()

	assert.Equal(t, 0, p.AvailableSpace())
}

func TestBoundaryOverCapacityCommitFailsWithoutCompaction(t *testing.T) {
	p := newCountedPool(t, 4)

	result := p.Commit([]byte("TOOLONG"))
	assert.True(t, result.IsErr())

	oos, ok := xerrors.AsA[*OutOfSpaceError](result.UnwrapErr())
	assert.True(t, ok)
	assert.Equal(t, 7, oos.Requested)
	assert.Equal(t, 4, oos.Available)

	stats := p.Stats()
	assert.Equal(t, uint64(0), stats.L1Compaction)
	assert.Equal(t, uint64(0), stats.L2Compaction)
}

func TestScenario1SmallCommitAndRead(t *testing.T) {
	p := newCountedPool(t, 100)

	h1 := p.Commit([]byte("AAAA")).Unwrap()

	assert.Equal(t, 96, p.AvailableSpace())

	got, err := p.Read(h1)
	assert.NoError(t, err)
	assert.Equal(t, []byte("AAAA"), got)
}

func TestScenario2ReleaseThenReuse(t *testing.T) {
	p := newCountedPool(t, 10)

	h1 := p.Commit([]byte("ABCDE")).Unwrap()
	h2 := p.Commit([]byte("FGHIJ")).Unwrap()

	assert.NoError(t, p.Release(h1))

	h3 := p.Commit([]byte("KLM")).Unwrap()

	got3, err := p.Read(h3)
	assert.NoError(t, err)
	assert.Equal(t, []byte("KLM"), got3)

	got2, err := p.Read(h2)
	assert.NoError(t, err)
	assert.Equal(t, []byte("FGHIJ"), got2)
}

func TestScenario3NonAdjacentFreeRunsForceTier2(t *testing.T) {
	p := newCountedPool(t, 10)

	h1 := p.Commit([]byte("AB")).Unwrap()
	h2 := p.Commit([]byte("CD")).Unwrap()
	h3 := p.Commit([]byte("EF")).Unwrap()
	h4 := p.Commit([]byte("GH")).Unwrap()
	h5 := p.Commit([]byte("IJ")).Unwrap()

	assert.NoError(t, p.Release(h1))
	assert.NoError(t, p.Release(h3))
	assert.NoError(t, p.Release(h5))

	assert.Equal(t, 6, p.AvailableSpace())

	before := p.Stats().L2Compaction

	h6 := p.Commit([]byte("XXXX")).Unwrap()

	assert.Equal(t, before+1, p.Stats().L2Compaction)

	got, err := p.Read(h6)
	assert.NoError(t, err)
	assert.Equal(t, []byte("XXXX"), got)

	got2, err := p.Read(h2)
	assert.NoError(t, err)
	assert.Equal(t, []byte("CD"), got2)

	got4, err := p.Read(h4)
	assert.NoError(t, err)
	assert.Equal(t, []byte("GH"), got4)
}

func TestScenario4AdjacentFreeRunServedWithoutTier2(t *testing.T) {
	p := newCountedPool(t, 10)

	handles := make([]Handle, 0, 3)
	for _, payload := range [][]byte{[]byte("WXYZ"), []byte("ABCD"), []byte("EF")} {
		handles = append(handles, p.Commit(payload).Unwrap())
	}

	before := p.Stats()

	assert.NoError(t, p.Release(handles[0]))

	after := p.Commit([]byte("WXYZ"))
	assert.True(t, after.IsOk())

	stats := p.Stats()
	assert.Equal(t, before.L1Compaction, stats.L1Compaction)
	assert.Equal(t, before.L2Compaction, stats.L2Compaction)
}

func TestScenario5OutOfSpaceLeavesStateUnchanged(t *testing.T) {
	p := newCountedPool(t, 20)

	payload := make([]byte, 20)
	for i := range payload {
		payload[i] = 'A'
	}
	h1 := p.Commit(payload).Unwrap()

	result := p.Commit([]byte("B"))
	assert.True(t, result.IsErr())

	oos, ok := xerrors.AsA[*OutOfSpaceError](result.UnwrapErr())
	assert.True(t, ok)
	assert.Equal(t, 1, oos.Requested)

	assert.Equal(t, uint64(1), p.Stats().FailedCommits)

	got, err := p.Read(h1)
	assert.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestScenario6ConcurrentCommitReadRelease(t *testing.T) {
	defer debug.WithTesting(t)()

	p := newCountedPool(t, 64)

	const workers = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				h := p.Commit([]byte("DATA")).Unwrap()

				got, err := p.Read(h)
				if err != nil || string(got) != "DATA" {
					panic("unexpected read result during stress test")
				}

				if err := p.Release(h); err != nil {
					panic("unexpected release failure during stress test")
				}
			}
		}()
	}

	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, uint64(workers*iterations), stats.Commits)
	assert.Equal(t, uint64(workers*iterations), stats.Releases)
	assert.Equal(t, 64, p.AvailableSpace())
}

func TestReadAndReleaseUnknownHandleFailsWithInvalidHandle(t *testing.T) {
	p := newCountedPool(t, 8)

	_, err := p.Read(Handle(9999))
	var invalid *InvalidHandleError
	assert.ErrorAs(t, err, &invalid)

	err = p.Release(Handle(9999))
	assert.ErrorAs(t, err, &invalid)
}

func TestReleaseTwiceFailsTheSecondTime(t *testing.T) {
	p := newCountedPool(t, 8)

	h := p.Commit([]byte("AB")).Unwrap()

	assert.NoError(t, p.Release(h))

	err := p.Release(h)
	var invalid *InvalidHandleError
	assert.ErrorAs(t, err, &invalid)
}

func TestHandleFidelitySurvivesIntermediateCommitsAndReleases(t *testing.T) {
	p := newCountedPool(t, 100)

	h := p.Commit([]byte("PERSISTENT")).Unwrap()

	for i := 0; i < 5; i++ {
		tmp := p.Commit([]byte("TEMP")).Unwrap()
		assert.NoError(t, p.Release(tmp))
	}

	got, err := p.Read(h)
	assert.NoError(t, err)
	assert.Equal(t, []byte("PERSISTENT"), got)
}

func TestStatsCountersAreMonotonic(t *testing.T) {
	p := newCountedPool(t, 32)

	prev := p.Stats()

	h := p.Commit([]byte("ABCD")).Unwrap()
	cur := p.Stats()
	assert.GreaterOrEqual(t, cur.Commits, prev.Commits)
	prev = cur

	_, _ = p.Read(h)
	cur = p.Stats()
	assert.GreaterOrEqual(t, cur.Reads, prev.Reads)
	assert.GreaterOrEqual(t, cur.ReadLocks, prev.ReadLocks)
	prev = cur

	assert.NoError(t, p.Release(h))
	cur = p.Stats()
	assert.GreaterOrEqual(t, cur.Releases, prev.Releases)
}

func TestPoolStringIncludesNameAndAvailability(t *testing.T) {
	p, err := New(16, WithName("diag"))
	assert.NoError(t, err)

	assert.Contains(t, p.String(), "diag")
	assert.Contains(t, p.String(), "16")
}

func TestPoolGoStringIncludesStats(t *testing.T) {
	p := newCountedPool(t, 16)

	h := p.Commit([]byte("AB")).Unwrap()
	assert.NoError(t, p.Release(h))

	gs := p.GoString()
	assert.Contains(t, gs, "mempool.Pool{")
	assert.Contains(t, gs, "commits: 1")
	assert.Contains(t, gs, "releases: 1")
}
