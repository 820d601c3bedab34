package storage

import "sort"

// dirtyRange is a byte range [Off, Off+Len) that has been written to the
// mapped file and not yet flushed to disk.
type dirtyRange struct {
	Off int64
	Len int64
}

// dirtyTracker coalesces overlapping/adjacent dirty ranges so CommitCluster
// issues as few msync calls as possible, the way hive/dirty does for hive
// writes.
type dirtyTracker struct {
	ranges []dirtyRange
}

func (t *dirtyTracker) add(off, n int64) {
	if n <= 0 {
		return
	}
	t.ranges = append(t.ranges, dirtyRange{Off: off, Len: n})
}

func (t *dirtyTracker) coalesce() []dirtyRange {
	if len(t.ranges) == 0 {
		return nil
	}
	sorted := append([]dirtyRange(nil), t.ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Off < sorted[j].Off })

	out := []dirtyRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Off <= last.Off+last.Len {
			if end := r.Off + r.Len; end > last.Off+last.Len {
				last.Len = end - last.Off
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

func (t *dirtyTracker) reset() {
	t.ranges = t.ranges[:0]
}
