package jit

import "sort"

// writeRange is a half-open [start, end) span of guest physical bytes.
type writeRange struct {
	start uint64
	end   uint64
}

// WriteLog batches guest stores so the page-version oracle is advanced once
// per drained range instead of once per store. Adjacent and overlapping
// ranges are coalesced, which collapses the byte-at-a-time store patterns
// of string operations and DMA fills into a handful of ranges.
//
// The log records raw physical spans; clipping to the guest RAM boundary
// happens at drain time so MMIO-adjacent stores never reach the oracle.
type WriteLog struct {
	ranges []writeRange
}

// NewWriteLog creates an empty log.
func NewWriteLog() *WriteLog {
	return &WriteLog{}
}

// Record logs a store of length bytes at paddr. Zero-length stores are
// ignored. A store contiguous with or overlapping the previous one extends
// it in place, so sequential store streams stay a single range.
func (wl *WriteLog) Record(paddr uint64, length int) {
	if length <= 0 {
		return
	}
	end := paddr + uint64(length)
	if n := len(wl.ranges); n > 0 {
		last := &wl.ranges[n-1]
		if paddr <= last.end && end >= last.start {
			if paddr < last.start {
				last.start = paddr
			}
			if end > last.end {
				last.end = end
			}
			return
		}
	}
	wl.ranges = append(wl.ranges, writeRange{start: paddr, end: end})
}

// Len returns the number of pending (uncoalesced-across-the-log) ranges.
func (wl *WriteLog) Len() int {
	return len(wl.ranges)
}

// DrainTo replays the logged ranges, coalesced and clipped to
// [0, limitEnd), through fn and resets the log. Ranges entirely at or past
// limitEnd are dropped.
func (wl *WriteLog) DrainTo(limitEnd uint64, fn func(paddr uint64, length int)) {
	if len(wl.ranges) == 0 {
		return
	}
	ranges := wl.ranges
	wl.ranges = nil

	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })

	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.start <= last.end {
			if r.end > last.end {
				last.end = r.end
			}
			continue
		}
		merged = append(merged, r)
	}

	for _, r := range merged {
		if r.start >= limitEnd {
			continue
		}
		end := r.end
		if end > limitEnd {
			end = limitEnd
		}
		fn(r.start, int(end-r.start))
	}
}
