package cmd

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/x86emu/tieredjit/jit"
)

// Synthetic guest layout. Blocks are laid out contiguously from guestBase
// at a fixed stride, and each block ends in a branch whose target is
// stored inside the block's code bytes. Rewriting the target is a guest
// store into code memory, which exercises the staleness protocol.
const (
	guestBase   uint64 = 0x40_0000
	guestStride uint32 = 64
	// Offset of the branch-target word within a block's code bytes
	branchTargetOffset uint64 = 8
	branchTargetLen    int    = 8
)

// guestConfig bundles the knobs for one synthetic run.
type guestConfig struct {
	Seed           int64
	GuestBlocks    int
	Slices         int
	BlocksPerSlice int
	SMCInterval    int
	Engine         jit.Config
}

// guestResult is what a run reports back to the CLI.
type guestResult struct {
	Stats        jit.Stats
	InterpBlocks uint64
	JITBlocks    uint64
	CacheLen     int
}

// guestProgram models the control-flow graph of the synthetic guest.
// succ[i] is the index of the block that block i branches to.
type guestProgram struct {
	succ []int
}

// newGuestProgram generates a control-flow graph that concentrates
// execution on a small hot set, so the profiler has something to find.
func newGuestProgram(blocks int, rng *rand.Rand) *guestProgram {
	hotSet := blocks / 16
	if hotSet < 4 {
		hotSet = 4
	}
	if hotSet > blocks {
		hotSet = blocks
	}

	succ := make([]int, blocks)
	for i := range succ {
		if rng.Float64() < 0.7 {
			succ[i] = rng.Intn(hotSet)
		} else {
			succ[i] = rng.Intn(blocks)
		}
	}
	return &guestProgram{succ: succ}
}

func (g *guestProgram) entryAddr(block int) uint64 {
	return guestBase + uint64(block)*uint64(guestStride)
}

func (g *guestProgram) blockIndex(addr uint64) int {
	return int((addr - guestBase) / uint64(guestStride))
}

// nextAddr reads the branch target out of block's code bytes.
func (g *guestProgram) nextAddr(block int) uint64 {
	return g.entryAddr(g.succ[block])
}

// rewriteBranch redirects block's branch target. The caller is
// responsible for recording the store in the write log.
func (g *guestProgram) rewriteBranch(block, newSucc int) {
	g.succ[block] = newSucc
}

// smcPatcher patches a random block's branch target every interval
// executed blocks, counting blocks from both tiers so patching keeps
// going after the hot set is fully compiled. Each patch is recorded in
// the write log; the dispatcher flushes it at the end of the step, the
// way a store retired by a compiled block reaches the engine.
type smcPatcher struct {
	prog     *guestProgram
	writes   *jit.WriteLog
	rng      *rand.Rand
	interval int
	executed uint64
}

func (sp *smcPatcher) onBlock() {
	if sp.interval <= 0 {
		return
	}
	sp.executed++
	if sp.executed%uint64(sp.interval) != 0 {
		return
	}
	victim := sp.rng.Intn(len(sp.prog.succ))
	sp.prog.rewriteBranch(victim, sp.rng.Intn(len(sp.prog.succ)))
	sp.writes.Record(sp.prog.entryAddr(victim)+branchTargetOffset, branchTargetLen)
	logrus.Debugf("Guest patched branch target of block %d", victim)
}

// synthInterp interprets guest blocks one at a time, reading each branch
// target out of the current code bytes.
type synthInterp struct {
	prog    *guestProgram
	patcher *smcPatcher
}

func (si *synthInterp) Interpret(cpu *jit.CPUState) {
	block := si.prog.blockIndex(cpu.PC)
	si.patcher.onBlock()
	cpu.PC = si.prog.nextAddr(block)
}

// synthBackend holds compiled artifacts. Each artifact is the branch
// target the compiler captured from the code bytes at compile time, so
// a stale artifact really does compute the wrong successor if run.
type synthBackend struct {
	artifacts []uint64
	patcher   *smcPatcher
}

func (sb *synthBackend) install(capturedNext uint64) uint32 {
	sb.artifacts = append(sb.artifacts, capturedNext)
	return uint32(len(sb.artifacts) - 1)
}

func (sb *synthBackend) Execute(tableIndex uint32, cpu *jit.CPUState) jit.BlockExit {
	sb.patcher.onBlock()
	return jit.BlockExit{NextPC: sb.artifacts[tableIndex], Committed: true}
}

// synthDiscoverer reports block extents for the fixed-stride guest layout.
type synthDiscoverer struct{}

func (synthDiscoverer) DiscoverBlock(entryAddr uint64) jit.DiscoveredBlock {
	return jit.DiscoveredBlock{
		EntryAddr: entryAddr,
		ByteLen:   guestStride,
		InstCount: 8,
		EndKind:   jit.BlockEndBranch,
	}
}

// compilePending drains the compile queue and installs an artifact for
// each requested block. The page snapshot is taken before the code bytes
// are read, so a store landing mid-compile surfaces as a stale install.
func compilePending(rt *jit.Runtime, queue *jit.CompileQueue, backend *synthBackend, prog *guestProgram, disc jit.BlockDiscoverer) {
	for _, addr := range queue.Drain() {
		block := disc.DiscoverBlock(addr)
		meta := rt.SnapshotMeta(addr, block.ByteLen)
		tableIndex := backend.install(prog.nextAddr(prog.blockIndex(addr)))
		if _, installed := rt.InstallHandle(rt.NewHandle(addr, tableIndex, meta)); !installed {
			logrus.Debugf("Install of block 0x%x rejected as stale", addr)
		}
	}
}

// runSyntheticGuest executes the synthetic guest through the tiered
// dispatcher, draining the compile queue between slices the way a real
// emulator hands compile requests to a background compiler.
func runSyntheticGuest(cfg guestConfig) guestResult {
	rng := rand.New(rand.NewSource(cfg.Seed))
	prog := newGuestProgram(cfg.GuestBlocks, rng)

	patcher := &smcPatcher{
		prog:     prog,
		rng:      rng,
		interval: cfg.SMCInterval,
	}
	queue := jit.NewCompileQueue()
	backend := &synthBackend{patcher: patcher}
	rt := jit.NewRuntime(cfg.Engine, backend, queue)

	interp := &synthInterp{prog: prog, patcher: patcher}
	ramLimit := guestBase + uint64(cfg.GuestBlocks)*uint64(guestStride)
	dispatcher := jit.NewDispatcher(interp, rt, ramLimit)
	patcher.writes = dispatcher.WriteLog()

	disc := synthDiscoverer{}
	cpu := &jit.CPUState{PC: prog.entryAddr(0)}

	for s := 0; s < cfg.Slices; s++ {
		for b := 0; b < cfg.BlocksPerSlice; b++ {
			dispatcher.Step(cpu)
		}
		compilePending(rt, queue, backend, prog, disc)
	}

	return guestResult{
		Stats:        rt.StatsSnapshot(),
		InterpBlocks: dispatcher.InterpBlocksTotal(),
		JITBlocks:    dispatcher.JITBlocksTotal(),
		CacheLen:     rt.CacheLen(),
	}
}
