package jit

import (
	"math"
	"testing"
)

func TestRecordHit_ThresholdAndDedup(t *testing.T) {
	// GIVEN a profile with threshold 3 and one uncompiled address
	p := NewHotnessProfile(3)
	addr := uint64(0x7c00)

	// WHEN the block runs three times without a compiled artifact
	got := []bool{
		p.RecordHit(addr, false),
		p.RecordHit(addr, false),
		p.RecordHit(addr, false),
	}

	// THEN only the third hit crosses the threshold and fires
	want := []bool{false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RecordHit call %d: got %v, want %v", i+1, got[i], want[i])
		}
	}

	// AND a fourth hit is suppressed by the outstanding request
	if p.RecordHit(addr, false) {
		t.Error("RecordHit after request fired: got true, want false (already requested)")
	}
}

func TestRecordHit_CompiledBlockNeverFires(t *testing.T) {
	// GIVEN a profile with threshold 1
	p := NewHotnessProfile(1)
	addr := uint64(0x400000)

	// WHEN the block runs far past the threshold with an artifact present
	for i := 0; i < 10; i++ {
		if p.RecordHit(addr, true) {
			t.Fatalf("RecordHit with hasCompiledBlock=true fired on hit %d", i+1)
		}
	}

	// THEN the counter still advanced (warm for eviction ordering)
	if p.Counter(addr) != 10 {
		t.Errorf("Counter: got %d, want 10", p.Counter(addr))
	}
}

func TestRecordHit_ClearRequestedRearmsThreshold(t *testing.T) {
	// GIVEN an address whose threshold request already fired
	p := NewHotnessProfile(2)
	addr := uint64(0x1000)
	p.RecordHit(addr, false)
	if !p.RecordHit(addr, false) {
		t.Fatal("second hit should cross threshold")
	}

	// WHEN the outstanding request is cleared
	p.ClearRequested(addr)

	// THEN the next hit fires again (count stays above threshold)
	if !p.RecordHit(addr, false) {
		t.Error("RecordHit after ClearRequested: got false, want true")
	}
}

func TestRecordHit_CounterSaturates(t *testing.T) {
	// GIVEN a counter already at the maximum representable count
	p := NewHotnessProfileWithCapacity(math.MaxUint64, 4)
	addr := uint64(0x2000)
	p.counters[addr] = hotCounter{count: math.MaxUint64}

	// WHEN the block runs again
	p.RecordHit(addr, false)

	// THEN the count does not wrap
	if p.Counter(addr) != math.MaxUint64 {
		t.Errorf("Counter after saturated hit: got %d, want MaxUint64", p.Counter(addr))
	}
}

func TestEviction_ColdestLeastRecentFirst(t *testing.T) {
	// GIVEN a capacity-2 profile with a hot and a cold address
	p := NewHotnessProfileWithCapacity(100, 2)
	hot := uint64(0xa000)
	cold := uint64(0xb000)
	p.RecordHit(hot, false)
	p.RecordHit(hot, false)
	p.RecordHit(cold, false)

	// WHEN a new address forces an eviction
	fresh := uint64(0xc000)
	p.RecordHit(fresh, false)

	// THEN the cold entry was evicted, the hot one kept
	if p.Counter(cold) != 0 {
		t.Errorf("cold entry survived eviction with count %d", p.Counter(cold))
	}
	if p.Counter(hot) != 2 {
		t.Errorf("hot entry count: got %d, want 2", p.Counter(hot))
	}
	if p.Counter(fresh) != 1 {
		t.Errorf("fresh entry count: got %d, want 1", p.Counter(fresh))
	}
}

func TestEviction_AddressTieBreakIsDeterministic(t *testing.T) {
	// GIVEN two entries with identical count and last-touch
	p := NewHotnessProfileWithCapacity(100, 2)
	lo := uint64(0x1000)
	hi := uint64(0x2000)
	p.counters[lo] = hotCounter{count: 1, lastTouch: 5}
	p.counters[hi] = hotCounter{count: 1, lastTouch: 5}

	// WHEN a new address forces an eviction
	p.RecordHit(0x3000, false)

	// THEN the lower address is the victim
	if p.Counter(lo) != 0 {
		t.Error("lower address should have been evicted on full tie")
	}
	if p.Counter(hi) != 1 {
		t.Error("higher address should have survived the tie-break")
	}
}

func TestEviction_RemovesRequestedMark(t *testing.T) {
	// GIVEN a capacity-1 profile whose only entry has a pending request
	p := NewHotnessProfileWithCapacity(1, 1)
	victim := uint64(0x1000)
	if !p.RecordHit(victim, false) {
		t.Fatal("threshold-1 hit should fire")
	}

	// WHEN the entry is evicted by a newcomer
	p.RecordHit(0x2000, false)

	// THEN the requested set no longer references the victim
	if p.isRequested(victim) {
		t.Error("evicted address still in requested set")
	}
}

func TestProfile_CapacityInvariant(t *testing.T) {
	// GIVEN a small profile under a large address stream
	p := NewHotnessProfileWithCapacity(3, 8)

	// WHEN many distinct addresses are recorded
	for addr := uint64(0); addr < 1000; addr++ {
		p.RecordHit(addr<<4, false)
		if p.Len() > 8 {
			t.Fatalf("tracked addresses %d exceeds capacity 8", p.Len())
		}
	}
}

func TestMarkRequested_KeepsRequestedSubsetOfTracked(t *testing.T) {
	// GIVEN an untracked address
	p := NewHotnessProfileWithCapacity(10, 4)
	addr := uint64(0x9000)

	// WHEN it is marked requested out of band (stale-recompile path)
	p.MarkRequested(addr)

	// THEN it is tracked (zero count) and requested
	if p.Len() != 1 {
		t.Fatalf("tracked count: got %d, want 1", p.Len())
	}
	if !p.isRequested(addr) {
		t.Error("address not in requested set after MarkRequested")
	}
	if p.Counter(addr) != 0 {
		t.Errorf("MarkRequested should not advance the counter, got %d", p.Counter(addr))
	}
}

func TestNewHotnessProfileWithCapacity_ClampsToOne(t *testing.T) {
	p := NewHotnessProfileWithCapacity(5, 0)
	p.RecordHit(0x1000, false)
	if p.Len() != 1 {
		t.Errorf("clamped capacity should track exactly 1 entry, got %d", p.Len())
	}
}

func TestRecommendedProfileCapacity_Clamping(t *testing.T) {
	cases := []struct {
		cacheMaxBlocks int
		want           int
	}{
		{1, 256},         // floor
		{64, 256},        // exactly at floor
		{1024, 4096},     // 4x in range
		{100000, 262144}, // ceiling
	}
	for _, c := range cases {
		if got := RecommendedProfileCapacity(c.cacheMaxBlocks); got != c.want {
			t.Errorf("RecommendedProfileCapacity(%d): got %d, want %d", c.cacheMaxBlocks, got, c.want)
		}
	}
}
