package vm

import (
	"errors"
	"fmt"
)

// ErrMemoryTooSmall is returned by New when memory_size does not leave
// room for the default entry point fetch plus the default stack slot
// (spec §9's Open Question resolution). Callers that need to distinguish
// this from other allocation failures (e.g. the embedding API mapping it
// to a specific status code) can check for it with errors.Is.
var ErrMemoryTooSmall = errors.New("memory_size too small")

// Event is what Step/Run surfaces to the embedding API beyond plain
// continuation (spec §4.6). EventNone means the step completed normally
// and execution may continue.
type Event int

const (
	EventNone Event = iota
	EventHalted
	EventBreakpoint
	EventException
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "NONE"
	case EventHalted:
		return "HALTED"
	case EventBreakpoint:
		return "BREAKPOINT"
	case EventException:
		return "EXCEPTION"
	default:
		return "UNKNOWN"
	}
}

// VM is a single independent NanoCore machine: its own memory, its own
// processor state, its own breakpoint set (spec §3, VM Instance).
type VM struct {
	CPU         *CPU
	Memory      *Memory
	Breakpoints *Breakpoints

	// Halted mirrors the Flags.bit7 Halt flag but is tracked separately
	// as its own VM Instance attribute per spec §3 ("halted: boolean;
	// once true, further step/run requests are no-ops returning HALTED").
	Halted bool

	// VMID is the monotonic vm_id the Instance Registry assigned this
	// instance at creation (spec §3) — distinct from the handle (slot
	// index) the registry hands back to callers, and never reused even
	// as handles are recycled. Zero until the registry sets it.
	VMID int

	// InstructionLog records the PC of every fetched instruction, for
	// host-side inspection. Unlike the teacher's full trace subsystem
	// (dropped, see DESIGN.md), this is unconditional and unbounded only
	// by what the host chooses to read; it does not gate core semantics.
	InstructionLog []uint64

	// pausedAt is the PC at which Step last reported EventBreakpoint;
	// pausedValid says whether it is set. The next Step at that same PC
	// executes the instruction instead of reporting the breakpoint again.
	pausedAt    uint64
	pausedValid bool
}

// New creates a VM instance with the given memory_size (spec §3,
// Lifecycle: "vm_create(memory_size): allocates memory (zeroed),
// initializes state (PC=0x10000, SP=memory_size-8)").
//
// memory_size must exceed MinMemorySize or the very first fetch at the
// default entry point would fault immediately (spec §9's Open Question
// resolution: reject such sizes).
func New(memorySize uint64) (*VM, error) {
	if memorySize <= MinMemorySize {
		return nil, fmt.Errorf("memory_size %d must exceed %d: %w", memorySize, MinMemorySize, ErrMemoryTooSmall)
	}
	mem, err := NewMemory(memorySize)
	if err != nil {
		return nil, err
	}
	v := &VM{
		CPU:         NewCPU(),
		Memory:      mem,
		Breakpoints: NewBreakpoints(),
	}
	v.resetState()
	return v, nil
}

// resetState applies the memory_size-dependent initial values to
// processor state without touching memory or breakpoints.
func (v *VM) resetState() {
	v.CPU.Reset()
	v.CPU.PC = DefaultLoadAddress
	v.CPU.SP = v.Memory.Size() - StackReserve
	v.Halted = false
	v.pausedValid = false
}

// Reset returns the instance to its initialization values: state is
// reinitialized, breakpoints are cleared, and halted is cleared. Memory
// is preserved — see SPEC_FULL.md §9 / DESIGN.md for why this resolves
// spec §9's Open Question the way it does.
func (v *VM) Reset() {
	v.resetState()
	v.Breakpoints.ClearAll()
	v.InstructionLog = v.InstructionLog[:0]
}

// LoadProgram copies data into memory at address and sets PC to address
// (spec §4.5, §6.1 vm_load_program).
func (v *VM) LoadProgram(data []byte, address uint64) error {
	if err := v.Memory.LoadBytes(address, data); err != nil {
		return err
	}
	v.CPU.PC = address
	return nil
}

// haltWithFlag marks the instance halted and sets the Halt flag bit,
// keeping the spec §3 invariant `halted ⇒ flags.bit7 == 1` true for every
// path that halts the machine, not just the HALT opcode.
func (v *VM) haltWithFlag() {
	v.Halted = true
	v.CPU.SetFlag(FlagHalt, true)
}

// Step fetches, decodes, and executes a single instruction per the
// algorithm in spec §4.3.
func (v *VM) Step() Event {
	if v.Halted {
		return EventHalted
	}

	// 2. Bounds-check the fetch: pc+4 <= memory_size, pc 4-byte aligned.
	if v.CPU.PC%InstructionSize != 0 || v.CPU.PC+InstructionSize > v.Memory.Size() {
		v.haltWithFlag()
		return EventException
	}

	// 3. Consult breakpoints before executing. A step issued right after a
	// breakpoint was reported at this same PC executes the instruction.
	resuming := v.pausedValid && v.pausedAt == v.CPU.PC
	v.pausedValid = false
	if !resuming && v.Breakpoints.Has(v.CPU.PC) {
		v.pausedAt, v.pausedValid = v.CPU.PC, true
		return EventBreakpoint
	}

	// 4. Fetch the 32-bit word, little-endian.
	fetchPC := v.CPU.PC
	word, err := v.Memory.ReadWord32(fetchPC)
	if err != nil {
		v.haltWithFlag()
		return EventException
	}

	// 5. Advance PC by 4 unconditionally; branches overwrite this below.
	v.CPU.PC = fetchPC + InstructionSize

	// 6. Decode and execute.
	inst := Decode(word)
	v.InstructionLog = append(v.InstructionLog, fetchPC)

	return v.execute(inst, fetchPC)
}

// execute dispatches a decoded instruction per the semantics table in
// spec §4.2. fetchPC is the address the instruction was fetched from,
// needed for PC-relative branch displacement.
func (v *VM) execute(inst Instruction, fetchPC uint64) Event {
	cpu := v.CPU

	switch inst.Opcode {
	case OpAdd:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))+cpu.GetRegister(int(inst.Rs2)))
	case OpSub:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))-cpu.GetRegister(int(inst.Rs2)))
	case OpMul:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))*cpu.GetRegister(int(inst.Rs2)))
	case OpDiv:
		rs2 := cpu.GetRegister(int(inst.Rs2))
		if rs2 != 0 {
			cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))/rs2)
		}
	case OpMod:
		rs2 := cpu.GetRegister(int(inst.Rs2))
		if rs2 != 0 {
			cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))%rs2)
		}
	case OpAnd:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))&cpu.GetRegister(int(inst.Rs2)))
	case OpOr:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))|cpu.GetRegister(int(inst.Rs2)))
	case OpXor:
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))^cpu.GetRegister(int(inst.Rs2)))
	case OpShl:
		shift := cpu.GetRegister(int(inst.Rs2)) & 63
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))<<shift)
	case OpShr:
		shift := cpu.GetRegister(int(inst.Rs2)) & 63
		cpu.SetRegister(int(inst.Rd), cpu.GetRegister(int(inst.Rs1))>>shift)
	case OpLd:
		cpu.SetRegister(int(inst.Rd), uint64(SignExtendImm16(inst.Imm16)))
	case OpSt:
		addr := uint64(int64(cpu.GetRegister(int(inst.Rs1))) + SignExtendImm16(inst.Imm16))
		if err := v.Memory.WriteDword(addr, cpu.GetRegister(int(inst.Rd))); err != nil {
			v.haltWithFlag()
			return EventException
		}
		cpu.IncrementPerfCounter(PerfMemoryOps)
	case OpBeq:
		if cpu.GetRegister(int(inst.Rd)) == cpu.GetRegister(int(inst.Rs1)) {
			v.branchTo(fetchPC, inst.Imm16)
		}
	case OpBne:
		if cpu.GetRegister(int(inst.Rd)) != cpu.GetRegister(int(inst.Rs1)) {
			v.branchTo(fetchPC, inst.Imm16)
		}
	case OpBlt:
		if AsSigned64(cpu.GetRegister(int(inst.Rd))) < AsSigned64(cpu.GetRegister(int(inst.Rs1))) {
			v.branchTo(fetchPC, inst.Imm16)
		}
	case OpHalt:
		v.haltWithFlag()
		cpu.IncrementPerfCounter(PerfInstructionsRetired)
		cpu.IncrementPerfCounter(PerfCycles)
		return EventHalted
	case OpNop:
		// nothing
	default:
		// Unknown opcode: fatal trap, does not count as retired.
		v.haltWithFlag()
		return EventException
	}

	cpu.IncrementPerfCounter(PerfInstructionsRetired)
	cpu.IncrementPerfCounter(PerfCycles)
	return EventNone
}

// branchTo sets PC to fetchPC + (imm16_signed << 1), the PC-relative
// displacement formula from spec §4.2. PC was already advanced by +4 in
// Step; a taken branch overwrites that rather than adding on top of it,
// per the cleaner shape spec §9 recommends over the source's
// `pc += (imm<<1) - 4` trick.
func (v *VM) branchTo(fetchPC uint64, imm16 uint16) {
	displacement := SignExtendImm16(imm16) << 1
	v.CPU.PC = uint64(int64(fetchPC) + displacement)
}

// Run repeatedly steps until the instance halts, a BREAKPOINT/EXCEPTION
// event occurs, or (if maxInstructions > 0) that many OK steps have been
// observed. maxInstructions == 0 means unbounded (spec §4.3).
func (v *VM) Run(maxInstructions uint64) Event {
	var count uint64
	for {
		ev := v.Step()
		switch ev {
		case EventNone:
			count++
			if maxInstructions > 0 && count >= maxInstructions {
				return EventNone
			}
		default:
			return ev
		}
	}
}
