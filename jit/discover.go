package jit

// BlockEndKind classifies how a discovered basic block terminates.
type BlockEndKind int

const (
	// BlockEndFallthrough: the block runs into the next address.
	BlockEndFallthrough BlockEndKind = iota
	// BlockEndBranch: conditional or unconditional control transfer.
	BlockEndBranch
	// BlockEndHalt: the block halts the CPU.
	BlockEndHalt
	// BlockEndExitToInterpreter: the block ends on an instruction the
	// compiler does not handle; the artifact bails out before it.
	BlockEndExitToInterpreter
)

// DiscoveredBlock describes one decoded basic block: where it starts, how
// many bytes of guest code it spans (the span feeding SnapshotMeta), how
// many instructions it retires, and how it ends. Decoding itself is the
// discoverer's concern.
type DiscoveredBlock struct {
	EntryAddr uint64
	ByteLen   uint32
	InstCount int
	EndKind   BlockEndKind
}

// BlockDiscoverer is the decode capability consumed by compilers: given an
// entry address it walks guest code to the block terminator. The physical
// span it reports is what the compiler snapshots page versions over.
type BlockDiscoverer interface {
	DiscoverBlock(entryAddr uint64) DiscoveredBlock
}
