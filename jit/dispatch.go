package jit

// CPUState is the minimal architectural state shared across the tier
// boundary: enough for an interpreter and a compiled block to agree on
// where execution stands. The full register file of the emulated machine
// lives with the embedder; compiled code synchronizes through the backend.
type CPUState struct {
	PC     uint64
	GPR    [16]uint64
	Halted bool
}

// Interpreter is the Tier-0 capability: execute exactly one basic block at
// cpu.PC, advancing cpu.PC past its terminator. Guest stores performed
// while interpreting must be recorded in the dispatcher's write log.
type Interpreter interface {
	Interpret(cpu *CPUState)
}

// ExecutedTier identifies which tier ran a block.
type ExecutedTier int

const (
	TierInterpreter ExecutedTier = iota
	TierJIT
)

// StepOutcome reports one dispatcher step.
type StepOutcome struct {
	Tier ExecutedTier
	// Committed is false when a compiled block was rolled back and retired
	// nothing; interpreter blocks always commit.
	Committed bool
}

// Dispatcher is the tiered execution loop: on every basic-block entry it
// consults the Runtime and either executes the compiled artifact through
// the backend or falls back to the interpreter. After every step it drains
// the write log into the page-version oracle so self-modifying code
// invalidation stays correct.
type Dispatcher struct {
	interp   Interpreter
	jit      *Runtime
	writes   *WriteLog
	ramLimit uint64

	interpBlocks uint64
	jitBlocks    uint64
}

// NewDispatcher wires the Tier-0 interpreter and the Tier-1 runtime
// together. ramLimit is the end of guest RAM; logged writes beyond it are
// MMIO and never advance page versions.
func NewDispatcher(interp Interpreter, jit *Runtime, ramLimit uint64) *Dispatcher {
	return &Dispatcher{
		interp:   interp,
		jit:      jit,
		writes:   NewWriteLog(),
		ramLimit: ramLimit,
	}
}

// Runtime returns the embedded Tier-1 runtime.
func (d *Dispatcher) Runtime() *Runtime {
	return d.jit
}

// WriteLog returns the log the interpreter and device models record guest
// stores into.
func (d *Dispatcher) WriteLog() *WriteLog {
	return d.writes
}

// InterpBlocksTotal returns the number of blocks the interpreter executed.
func (d *Dispatcher) InterpBlocksTotal() uint64 {
	return d.interpBlocks
}

// JITBlocksTotal returns the number of committed compiled blocks executed.
func (d *Dispatcher) JITBlocksTotal() uint64 {
	return d.jitBlocks
}

// Step executes one basic block at cpu.PC through the hottest available
// tier, then flushes pending guest writes into the page-version oracle.
func (d *Dispatcher) Step(cpu *CPUState) StepOutcome {
	if tableIndex, ok := d.jit.PrepareBlock(cpu.PC); ok {
		exit := d.jit.ExecuteCompiled(tableIndex, cpu)
		cpu.PC = exit.NextPC
		if exit.Committed {
			d.jitBlocks++
		}
		d.flushWrites()
		if exit.ExitToInterpreter && !cpu.Halted {
			// The artifact bailed out mid-block; let the interpreter
			// finish the block before the next dispatch decision.
			d.interp.Interpret(cpu)
			d.interpBlocks++
			d.flushWrites()
		}
		return StepOutcome{Tier: TierJIT, Committed: exit.Committed}
	}

	d.interp.Interpret(cpu)
	d.interpBlocks++
	d.flushWrites()
	return StepOutcome{Tier: TierInterpreter, Committed: true}
}

func (d *Dispatcher) flushWrites() {
	d.writes.DrainTo(d.ramLimit, d.jit.OnGuestWrite)
}
