package vm

// CPU represents the NanoCore processor state: a bank of general-purpose
// and auxiliary registers plus the control words describing where
// execution is and what it has done (spec §3, Processor State).
type CPU struct {
	// PC is the 64-bit byte-addressed program counter. It is required to
	// be 4-byte aligned at fetch.
	PC uint64

	// SP is the 64-bit stack pointer, initialized to memory_size - 8.
	SP uint64

	// Flags is a 64-bit word; see Flag* bit position constants.
	Flags uint64

	// GPRs holds the 32 general-purpose 64-bit registers. R0 is hardwired
	// to zero: SetRegister silently discards writes to index 0, and
	// GetRegister always returns 0 for index 0, regardless of what is
	// stored here.
	GPRs [GPRCount]uint64

	// VRegs holds 16 vector register slots, each a 4-lane 64-bit tuple.
	// Reserved; not exercised by core semantics (spec §3).
	VRegs [VRegCount][VRegLanes]uint64

	// PerfCounters holds the 8 monotonically non-decreasing performance
	// counters; see Perf* slot index constants.
	PerfCounters [PerfCounterCount]uint64

	// CacheCtrl and VBase are reserved 64-bit control words, reset to 0.
	CacheCtrl uint64
	VBase     uint64
}

// NewCPU creates a zeroed CPU. vm.New and VM.Reset (via resetState) apply the
// memory_size-dependent PC/SP initialization values (spec §3, Lifecycle).
func NewCPU() *CPU {
	return &CPU{}
}

// Reset zeros all processor state. The caller is responsible for then
// setting PC and SP to their memory_size-dependent initial values.
func (c *CPU) Reset() {
	*c = CPU{}
}

// GetRegister returns the value of GPR reg (0-31). R0 always reads as 0.
func (c *CPU) GetRegister(reg int) uint64 {
	if reg == 0 {
		return 0
	}
	if reg < 0 || reg >= GPRCount {
		return 0
	}
	return c.GPRs[reg]
}

// SetRegister writes value to GPR reg (0-31). Writes to R0 are silently
// discarded per the R0-is-zero invariant (spec §3); this is the single
// choke point every executor case and every embedding API call routes
// through, so no case has to remember the check itself (spec §9).
func (c *CPU) SetRegister(reg int, value uint64) {
	if reg <= 0 || reg >= GPRCount {
		return
	}
	c.GPRs[reg] = value
}

// FlagSet reports whether the given bit position is set in Flags.
func (c *CPU) FlagSet(bit uint) bool {
	return c.Flags&(uint64(1)<<bit) != 0
}

// SetFlag sets or clears the given bit position in Flags.
func (c *CPU) SetFlag(bit uint, on bool) {
	if on {
		c.Flags |= uint64(1) << bit
	} else {
		c.Flags &^= uint64(1) << bit
	}
}

// Halted reports whether the Halt flag bit is set.
func (c *CPU) Halted() bool {
	return c.FlagSet(FlagHalt)
}

// IncrementPC advances the program counter by one instruction word.
func (c *CPU) IncrementPC() {
	c.PC += InstructionSize
}

// Branch sets the program counter to an absolute address.
func (c *CPU) Branch(address uint64) {
	c.PC = address
}

// IncrementPerfCounter bumps a performance counter slot by one.
func (c *CPU) IncrementPerfCounter(slot int) {
	if slot < 0 || slot >= PerfCounterCount {
		return
	}
	c.PerfCounters[slot]++
}
