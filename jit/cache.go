package jit

import "github.com/sirupsen/logrus"

// CompiledBlockHandle identifies one finished compile: the guest entry
// address, the opaque index of the artifact in the backend's table, and the
// page-version metadata captured when the compiler read the code bytes.
//
// The cache never inspects or owns the generated code itself, only the
// index plus metadata, so there is no ownership cycle between the cache and
// the backend's artifact storage.
type CompiledBlockHandle struct {
	EntryAddr  uint64
	TableIndex uint32
	Meta       BlockMeta
}

// cacheEntry is the stored mapping for one compiled entry address.
type cacheEntry struct {
	tableIndex uint32
	meta       BlockMeta
}

// BlockCache maps entry addresses to compiled artifacts and guarantees a
// mapping is never served once stale. It is bounded by maxBlocks; eviction
// consults the hotness profile so the least valuable compiled block is
// dropped first.
type BlockCache struct {
	maxBlocks int
	entries   map[uint64]cacheEntry
	pages     *PageVersions
	profile   *HotnessProfile
	stats     *Stats
	sink      CompileRequestSink
}

// NewBlockCache creates an empty cache holding at most maxBlocks entries.
// The profile, stats, and sink are shared with the owning Runtime.
func NewBlockCache(maxBlocks int, profile *HotnessProfile, stats *Stats, sink CompileRequestSink) *BlockCache {
	if maxBlocks < 1 {
		logrus.Panicf("BlockCache: maxBlocks must be > 0, got %d", maxBlocks)
	}
	return &BlockCache{
		maxBlocks: maxBlocks,
		entries:   make(map[uint64]cacheEntry, maxBlocks),
		pages:     NewPageVersions(),
		profile:   profile,
		stats:     stats,
		sink:      sink,
	}
}

// SnapshotMeta captures the current page versions for a block's code span.
func (bc *BlockCache) SnapshotMeta(codeAddr uint64, byteLen uint32) BlockMeta {
	return bc.pages.Snapshot(codeAddr, byteLen)
}

// OnGuestWrite advances the versions of the pages the write touches. Pure
// bookkeeping: staleness is observed, and its costs accounted, at the next
// Lookup or InstallHandle touching an affected address.
func (bc *BlockCache) OnGuestWrite(paddr uint64, length int) {
	bc.pages.OnGuestWrite(paddr, length)
}

// IsFresh reports whether the captured metadata still matches the oracle.
func (bc *BlockCache) IsFresh(meta BlockMeta) bool {
	return bc.pages.IsFresh(meta)
}

// Lookup resolves addr to its artifact index.
//
// An entry whose metadata has gone stale is removed on the spot, a
// recompile is requested (the prior compile already proved the address
// worth compiling, so the hotness threshold is bypassed), and the lookup
// reports a miss.
func (bc *BlockCache) Lookup(addr uint64) (tableIndex uint32, hit bool) {
	e, present := bc.entries[addr]
	if !present {
		return 0, false
	}
	if !bc.pages.IsFresh(e.meta) {
		delete(bc.entries, addr)
		bc.stats.Invalidations++
		logrus.Debugf("jit: block %#x invalidated (stale pages), recompiling", addr)
		bc.submitRecompile(addr)
		return 0, false
	}
	return e.tableIndex, true
}

// InstallHandle accepts a finished compile into the cache.
//
// A handle whose metadata aged out between compile and install is rejected
// and a fresh compile is requested; the protocol self-corrects without the
// caller retrying. A fresh handle is inserted (evicting the coldest entry
// if the cache is full and addr is new) and the address's outstanding
// compile request is cleared so future threshold crossings are not
// permanently suppressed.
//
// The evicted addresses are returned so the embedder can free or reuse the
// corresponding backend table slots.
func (bc *BlockCache) InstallHandle(h CompiledBlockHandle) (evicted []uint64, installed bool) {
	if !bc.pages.IsFresh(h.Meta) {
		bc.stats.StaleInstalls++
		logrus.Debugf("jit: rejecting stale install for %#x, recompiling", h.EntryAddr)
		bc.submitRecompile(h.EntryAddr)
		return nil, false
	}

	if _, present := bc.entries[h.EntryAddr]; !present && len(bc.entries) >= bc.maxBlocks {
		victim, ok := bc.evictionVictim()
		if ok {
			delete(bc.entries, victim)
			bc.stats.Evictions++
			evicted = append(evicted, victim)
			logrus.Debugf("jit: evicted block %#x to install %#x", victim, h.EntryAddr)
		}
	}

	bc.entries[h.EntryAddr] = cacheEntry{tableIndex: h.TableIndex, meta: h.Meta}
	bc.stats.Installs++
	bc.profile.ClearRequested(h.EntryAddr)
	return evicted, true
}

// InvalidateBlock removes addr explicitly, with no implied compile request.
// Idempotent: the second call on the same address returns false and counts
// nothing. The address's outstanding-request mark is cleared but its
// hotness counter survives, so re-warming can cross the threshold again.
func (bc *BlockCache) InvalidateBlock(addr uint64) bool {
	if _, present := bc.entries[addr]; !present {
		return false
	}
	delete(bc.entries, addr)
	bc.stats.Invalidations++
	bc.profile.ClearRequested(addr)
	return true
}

// Contains reports whether addr has a cached artifact, fresh or not.
// Presence only; no staleness side effects.
func (bc *BlockCache) Contains(addr uint64) bool {
	_, present := bc.entries[addr]
	return present
}

// Len returns the current entry count.
func (bc *BlockCache) Len() int {
	return len(bc.entries)
}

// submitRecompile fires an unconditional compile request for addr, marking
// it requested so the threshold path does not duplicate the request.
func (bc *BlockCache) submitRecompile(addr uint64) {
	bc.stats.CompileRequests++
	bc.profile.MarkRequested(addr)
	bc.sink.RequestCompile(addr)
}

// evictionVictim picks the cached address with the smallest
// (count, lastTouch, addr) tuple per the profile, mirroring the profile's
// own eviction ordering. Addresses the profile no longer tracks rank
// coldest.
func (bc *BlockCache) evictionVictim() (uint64, bool) {
	var (
		victim     uint64
		vcount     uint64
		vtouch     uint64
		haveVictim bool
	)
	for addr := range bc.entries {
		count, touch := bc.profile.rank(addr)
		if !haveVictim || lessRank(count, touch, addr, vcount, vtouch, victim) {
			victim, vcount, vtouch, haveVictim = addr, count, touch, true
		}
	}
	return victim, haveVictim
}
