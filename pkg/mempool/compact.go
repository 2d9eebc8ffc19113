package mempool

// relocate performs tier-2 compaction: every live payload is copied down
// to the low end of the arena, back to back in ascending start order, and
// the entire remaining capacity is reassembled as a single free segment
// at the high end.
//
// relocate must be called with p.mu held. It changes where bytes live but
// never how many free bytes exist, so it does not touch p.availBytes.
func (p *Pool) relocate() {
	live := p.used.snapshotSortedByStart()

	cursor := 0
	for _, hs := range live {
		seg := hs.segment
		if seg.length == 0 {
			continue
		}

		if seg.start != cursor {
			p.arena.CopyWithin(cursor, seg.start, seg.length)
		}

		p.used.record(hs.handle, segment{start: cursor, length: seg.length})
		cursor += seg.length
	}

	if remaining := p.arena.Cap() - cursor; remaining > 0 {
		p.free = freeList{{start: cursor, length: remaining}}
	} else {
		p.free = freeList{}
	}
}
