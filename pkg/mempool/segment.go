package mempool

import "sort"

// segment is a half-open byte range [start, start+length) inside the
// arena.
type segment struct {
	start, length int
}

func (s segment) end() int { return s.start + s.length }

// freeList is the ordered sequence of disjoint free segments.
//
// Ordering between compactions is not meaningful; first-fit scans it
// front to back, and release appends to the end, so "ordered" here only
// means "supports index-stable insert/remove/scan", not "sorted by
// start". Tier-1 compaction is the only place order (by start) matters,
// and it sorts explicitly before merging.
type freeList []segment

// total returns the sum of all free segment lengths.
func (f freeList) total() int {
	n := 0
	for _, s := range f {
		n += s.length
	}
	return n
}

// findFit returns the index of the first free segment with length >= n,
// implementing first-fit.
func (f freeList) findFit(n int) (index int, ok bool) {
	for i, s := range f {
		if s.length >= n {
			return i, true
		}
	}
	return 0, false
}

// take removes the segment at index, re-inserting a remainder segment at
// the end of the list if the taken segment was strictly larger than n.
// It returns the start offset the caller should write to.
func (f *freeList) take(index, n int) int {
	s := (*f)[index]

	*f = append((*f)[:index], (*f)[index+1:]...)

	if s.length > n {
		*f = append(*f, segment{start: s.start + n, length: s.length - n})
	}

	return s.start
}

// release appends s to the free sequence, unsorted. Zero-length segments
// are dropped rather than appended, since a zero-length commit never
// consumed arena bytes in the first place.
func (f *freeList) release(s segment) {
	if s.length == 0 {
		return
	}

	*f = append(*f, s)
}

// coalesce sorts the free sequence by start and merges every pair of
// adjacent ranges whose end equals the next range's start. No payload
// bytes move; this is tier-1 compaction.
func (f *freeList) coalesce() {
	sort.Slice(*f, func(i, j int) bool { return (*f)[i].start < (*f)[j].start })

	merged := (*f)[:0]
	for _, s := range *f {
		if s.length == 0 {
			continue
		}

		if n := len(merged); n > 0 && merged[n-1].end() == s.start {
			merged[n-1].length += s.length
			continue
		}

		merged = append(merged, s)
	}

	*f = merged
}

// handleSegment pairs a handle with its used segment, for snapshots taken
// before relocation.
type handleSegment struct {
	handle  Handle
	segment segment
}

// usedTable maps a live handle to the segment holding its payload.
type usedTable map[Handle]segment

// record inserts or overwrites the segment for handle.
func (t usedTable) record(h Handle, s segment) { t[h] = s }

// drop removes handle's entry, returning its segment.
func (t usedTable) drop(h Handle) (segment, bool) {
	s, ok := t[h]
	if ok {
		delete(t, h)
	}
	return s, ok
}

// get returns handle's segment without removing it.
func (t usedTable) get(h Handle) (segment, bool) {
	s, ok := t[h]
	return s, ok
}

// snapshotSortedByStart returns every (handle, segment) pair, ordered by
// ascending current start. Tier-2 compaction relocates payloads while
// simultaneously rewriting the same map; iterating a snapshot instead of
// the live map avoids the iterator-invalidation hazard that would come
// from mutating usedTable mid-range.
func (t usedTable) snapshotSortedByStart() []handleSegment {
	out := make([]handleSegment, 0, len(t))
	for h, s := range t {
		out = append(out, handleSegment{handle: h, segment: s})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].segment.start < out[j].segment.start })

	return out
}
