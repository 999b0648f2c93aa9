package jit

import (
	"github.com/sirupsen/logrus"
)

// Config holds the engine's two tunables. All other sizing (the hotness
// table capacity) is derived from CacheMaxBlocks.
//
// Degenerate configurations are honored: HotThreshold set to MaxUint64
// disables compile requests entirely, and CacheMaxBlocks of 1 forces an
// eviction on every second distinct installed address.
type Config struct {
	HotThreshold   uint64 // execution count before an address is compile-worthy
	CacheMaxBlocks int    // compiled-cache capacity in blocks (must be > 0)
}

// CompileRequestSink receives fire-and-forget compile requests. A request
// carries no completion or cancellation primitive: if its premise goes
// stale before the compile finishes, the eventual InstallHandle is simply
// rejected and a fresh request is issued.
//
// The sink may be invoked multiple times for the same address before any
// compile completes; threshold-triggered requests are deduplicated via the
// profile's requested set, staleness-triggered requests intentionally
// bypass that dedup.
type CompileRequestSink interface {
	RequestCompile(addr uint64)
}

// BlockExit reports how a compiled artifact finished executing.
type BlockExit struct {
	// NextPC is the guest address execution should continue at.
	NextPC uint64
	// ExitToInterpreter is set when the artifact bailed out mid-block and
	// the interpreter must resume at NextPC.
	ExitToInterpreter bool
	// Committed is cleared when the host rolled back the block's
	// architectural side effects; an uncommitted block retired nothing.
	Committed bool
}

// Backend executes previously installed compiled artifacts. The table index
// is the opaque handle the cache stored at install time.
type Backend interface {
	Execute(tableIndex uint32, cpu *CPUState) BlockExit
}

// Runtime is the single object the execution loop and the asynchronous
// compiler both talk to. It owns the hotness profile, the compiled-block
// cache with its page-version oracle, and the aggregate statistics, and is
// constructed with the injected backend and compile-request sink.
//
// Single-writer per call; the embedder synchronizes if the Runtime is
// shared across execution contexts.
type Runtime struct {
	config  Config
	profile *HotnessProfile
	cache   *BlockCache
	stats   Stats
	backend Backend
	sink    CompileRequestSink
}

// NewRuntime validates the configuration and wires the engine together.
func NewRuntime(cfg Config, backend Backend, sink CompileRequestSink) *Runtime {
	if cfg.CacheMaxBlocks < 1 {
		logrus.Panicf("Runtime: CacheMaxBlocks must be > 0, got %d", cfg.CacheMaxBlocks)
	}
	r := &Runtime{
		config:  cfg,
		backend: backend,
		sink:    sink,
	}
	r.profile = NewHotnessProfileWithCapacity(cfg.HotThreshold, RecommendedProfileCapacity(cfg.CacheMaxBlocks))
	r.cache = NewBlockCache(cfg.CacheMaxBlocks, r.profile, &r.stats, sink)
	return r
}

// PrepareBlock is the hot path, called on every guest basic-block entry.
//
// On a fresh cache hit it returns the artifact index for the backend to
// execute. On a miss (including a lazily detected stale hit, which the
// cache has already invalidated and re-requested) it updates the hotness
// profile, possibly firing a threshold compile request, and returns !ok so
// the caller falls back to interpretation.
func (r *Runtime) PrepareBlock(addr uint64) (tableIndex uint32, ok bool) {
	if tableIndex, ok = r.cache.Lookup(addr); ok {
		r.stats.CacheHits++
		// Bookkeeping only: with a compiled block present this cannot
		// fire a new request.
		r.profile.RecordHit(addr, true)
		return tableIndex, true
	}

	r.stats.CacheMisses++
	if r.profile.RecordHit(addr, false) {
		r.stats.CompileRequests++
		r.sink.RequestCompile(addr)
	}
	return 0, false
}

// ExecuteCompiled runs a previously installed artifact through the backend.
func (r *Runtime) ExecuteCompiled(tableIndex uint32, cpu *CPUState) BlockExit {
	return r.backend.Execute(tableIndex, cpu)
}

// InstallHandle accepts a finished compile; see BlockCache.InstallHandle.
func (r *Runtime) InstallHandle(h CompiledBlockHandle) (evicted []uint64, installed bool) {
	return r.cache.InstallHandle(h)
}

// OnGuestWrite is the guest-store hook: every store landing on a mapped
// code page must pass through here (directly or via a drained WriteLog)
// before or as part of completing, so cached blocks covering the touched
// pages stop being served.
func (r *Runtime) OnGuestWrite(paddr uint64, length int) {
	r.cache.OnGuestWrite(paddr, length)
}

// InvalidateBlock removes addr explicitly; see BlockCache.InvalidateBlock.
func (r *Runtime) InvalidateBlock(addr uint64) bool {
	return r.cache.InvalidateBlock(addr)
}

// SnapshotMeta captures page-version metadata for a block's code span. The
// compiler should capture this as close as possible to when it reads the
// guest code bytes; an install with an aged snapshot is rejected.
func (r *Runtime) SnapshotMeta(codeAddr uint64, byteLen uint32) BlockMeta {
	return r.cache.SnapshotMeta(codeAddr, byteLen)
}

// NewHandle builds a CompiledBlockHandle for InstallHandle.
func (r *Runtime) NewHandle(addr uint64, tableIndex uint32, meta BlockMeta) CompiledBlockHandle {
	return CompiledBlockHandle{EntryAddr: addr, TableIndex: tableIndex, Meta: meta}
}

// IsCompiled reports whether addr currently has a cached artifact. Presence
// only; no staleness side effects.
func (r *Runtime) IsCompiled(addr uint64) bool {
	return r.cache.Contains(addr)
}

// CacheLen returns the compiled-cache entry count.
func (r *Runtime) CacheLen() int {
	return r.cache.Len()
}

// Profile exposes the hotness profile for eviction-aware embedders.
func (r *Runtime) Profile() *HotnessProfile {
	return r.profile
}

// StatsSnapshot returns an immutable copy of all counters.
func (r *Runtime) StatsSnapshot() Stats {
	return r.stats
}
