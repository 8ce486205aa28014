package vm

// StateSnapshot captures a full copy of processor state — what the
// embedding API's vm_get_state returns (spec §6.1). It is a plain value
// copy, safe to hold onto after the VM it was captured from keeps running.
type StateSnapshot struct {
	PC           uint64
	SP           uint64
	Flags        uint64
	GPRs         [GPRCount]uint64
	VRegs        [VRegCount][VRegLanes]uint64
	PerfCounters [PerfCounterCount]uint64
	CacheCtrl    uint64
	VBase        uint64
}

// Capture copies the current processor state out of cpu.
func (s *StateSnapshot) Capture(cpu *CPU) {
	s.PC = cpu.PC
	s.SP = cpu.SP
	s.Flags = cpu.Flags
	s.GPRs = cpu.GPRs
	s.VRegs = cpu.VRegs
	s.PerfCounters = cpu.PerfCounters
	s.CacheCtrl = cpu.CacheCtrl
	s.VBase = cpu.VBase
}

// ChangedRegisters returns the indices of GPRs that differ between two
// snapshots, for host-side change detection (e.g. a debugger highlighting
// what a single step touched).
func (s *StateSnapshot) ChangedRegisters(other *StateSnapshot) []int {
	var changed []int
	for i := 0; i < GPRCount; i++ {
		if s.GPRs[i] != other.GPRs[i] {
			changed = append(changed, i)
		}
	}
	return changed
}

// FlagsChanged reports whether the flags word differs between two
// snapshots.
func (s *StateSnapshot) FlagsChanged(other *StateSnapshot) bool {
	return s.Flags != other.Flags
}
