package jit

import "math"

const (
	// minProfileCapacity and maxProfileCapacity bound the derived hotness
	// table size regardless of the configured cache size.
	minProfileCapacity = 256
	maxProfileCapacity = 262144
)

// RecommendedProfileCapacity derives the hotness table capacity from the
// compiled-cache capacity so profile sizing scales with the cache without a
// separate tunable. The table tracks more addresses than the cache holds
// (warm but not yet compiled blocks), hence the 4x factor.
func RecommendedProfileCapacity(cacheMaxBlocks int) int {
	capacity := cacheMaxBlocks * 4
	if capacity < minProfileCapacity {
		return minProfileCapacity
	}
	if capacity > maxProfileCapacity {
		return maxProfileCapacity
	}
	return capacity
}

// hotCounter is one tracked entry address: a saturating execution count and
// the logical time of the most recent hit, used for eviction ordering.
type hotCounter struct {
	count     uint64
	lastTouch uint64
}

// HotnessProfile converts a stream of per-address "this block ran" events
// into occasional compile-worthiness signals, in bounded memory.
//
// The profile keeps a bounded table of saturating counters keyed by entry
// address, plus the set of addresses with an outstanding compile request so
// threshold crossings fire at most one request per address. Recency is
// tracked with a logical clock advanced on every access, not wall-clock
// time, so eviction ordering is deterministic.
type HotnessProfile struct {
	threshold uint64
	capacity  int
	clock     uint64
	counters  map[uint64]hotCounter
	requested map[uint64]struct{}
}

// NewHotnessProfile creates a profile with the default capacity for a
// standalone profile. Most callers go through NewRuntime, which sizes the
// profile from the cache via RecommendedProfileCapacity.
func NewHotnessProfile(threshold uint64) *HotnessProfile {
	return NewHotnessProfileWithCapacity(threshold, minProfileCapacity)
}

// NewHotnessProfileWithCapacity creates a profile tracking at most capacity
// addresses. Capacity is clamped to at least 1.
func NewHotnessProfileWithCapacity(threshold uint64, capacity int) *HotnessProfile {
	if capacity < 1 {
		capacity = 1
	}
	return &HotnessProfile{
		threshold: threshold,
		capacity:  capacity,
		counters:  make(map[uint64]hotCounter, capacity),
		requested: make(map[uint64]struct{}),
	}
}

// Threshold returns the execution count at which an address becomes
// compile-worthy.
func (p *HotnessProfile) Threshold() uint64 {
	return p.threshold
}

// Counter returns the current execution count for addr (0 if untracked).
func (p *HotnessProfile) Counter(addr uint64) uint64 {
	return p.counters[addr].count
}

// Len returns the number of tracked addresses.
func (p *HotnessProfile) Len() int {
	return len(p.counters)
}

// RecordHit registers one execution of the block at addr and reports
// whether a compile request should be issued now.
//
// It returns true iff the block has no compiled artifact yet, its count has
// reached the threshold, and no request is already outstanding; a true
// return marks the address as requested as a side effect. When
// hasCompiledBlock is true the call is pure bookkeeping (it keeps the
// counter warm for eviction ordering) and always returns false.
func (p *HotnessProfile) RecordHit(addr uint64, hasCompiledBlock bool) bool {
	p.clock++

	c, tracked := p.counters[addr]
	if !tracked {
		p.ensureSpaceForNewEntry()
	}
	if c.count < math.MaxUint64 {
		c.count++
	}
	c.lastTouch = p.clock
	p.counters[addr] = c

	if hasCompiledBlock {
		return false
	}
	if c.count < p.threshold {
		return false
	}
	if _, outstanding := p.requested[addr]; outstanding {
		return false
	}
	p.requested[addr] = struct{}{}
	return true
}

// MarkRequested records an outstanding compile request issued outside the
// normal threshold path (e.g. a staleness-triggered recompile), so later
// threshold crossings do not duplicate it.
//
// The requested set is kept a subset of the tracked addresses: an untracked
// address gets a zero counter first so eviction can reclaim both together.
func (p *HotnessProfile) MarkRequested(addr uint64) {
	if _, tracked := p.counters[addr]; !tracked {
		p.ensureSpaceForNewEntry()
		p.counters[addr] = hotCounter{lastTouch: p.clock}
	}
	p.requested[addr] = struct{}{}
}

// ClearRequested drops the outstanding-request mark for addr, re-arming the
// threshold trigger. Called after a successful install or an explicit
// invalidation.
func (p *HotnessProfile) ClearRequested(addr uint64) {
	delete(p.requested, addr)
}

// isRequested reports whether a compile request is outstanding for addr.
func (p *HotnessProfile) isRequested(addr uint64) bool {
	_, ok := p.requested[addr]
	return ok
}

// rank returns the eviction-ordering tuple for addr. Untracked addresses
// rank as (0, 0): coldest, never touched.
func (p *HotnessProfile) rank(addr uint64) (count, lastTouch uint64) {
	c := p.counters[addr]
	return c.count, c.lastTouch
}

// ensureSpaceForNewEntry evicts the victim with the lexicographically
// smallest (count, lastTouch, addr) tuple when the table is at capacity:
// the coldest, least-recently-touched entry, with the address as a
// deterministic final tie-break. The victim leaves both the counter table
// and the requested set.
func (p *HotnessProfile) ensureSpaceForNewEntry() {
	if len(p.counters) < p.capacity {
		return
	}
	var (
		victim     uint64
		victimCtr  hotCounter
		haveVictim bool
	)
	for addr, c := range p.counters {
		if !haveVictim || lessRank(c.count, c.lastTouch, addr, victimCtr.count, victimCtr.lastTouch, victim) {
			victim, victimCtr, haveVictim = addr, c, true
		}
	}
	if haveVictim {
		delete(p.counters, victim)
		delete(p.requested, victim)
	}
}

// lessRank orders (count, lastTouch, addr) tuples lexicographically.
func lessRank(count1, touch1, addr1, count2, touch2, addr2 uint64) bool {
	if count1 != count2 {
		return count1 < count2
	}
	if touch1 != touch2 {
		return touch1 < touch2
	}
	return addr1 < addr2
}
