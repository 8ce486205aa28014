package debugger

import (
	"fmt"
	"strings"

	"github.com/nanocore-vm/nanocore/vm"
)

// Debugger layers host-side step/continue control and richer breakpoint
// and watchpoint bookkeeping over a single *vm.VM (spec §6.5, supplemented
// debugger control layer). The Core's own vm.Breakpoints set is the
// authority consulted during Step; Debugger's BreakpointManager exists
// so a host tool can track IDs, hit counts, and temporary breakpoints,
// mirroring every armed address into the VM's own set via Arm/Disarm.
type Debugger struct {
	VM *vm.VM

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager

	Running  bool
	StepMode StepMode

	// LastCommand supports empty-input-repeats-last-command REPL
	// ergonomics; the REPL itself lives outside this package (spec §1,
	// "interactive REPL" is an external collaborator, not Core).
	LastCommand string

	Output strings.Builder
}

// StepMode represents different stepping modes
type StepMode int

const (
	StepNone   StepMode = iota // Not stepping
	StepSingle                 // Step one instruction
)

// NewDebugger creates a new debugger instance wrapping machine.
func NewDebugger(machine *vm.VM) *Debugger {
	return &Debugger{
		VM:          machine,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		Running:     false,
		StepMode:    StepNone,
	}
}

// Arm sets a breakpoint at address in both the host-side manager and the
// Core's own breakpoint set, so vm.Step's pre-execution check and this
// package's hit-count bookkeeping stay in agreement.
func (d *Debugger) Arm(address uint64, temporary bool, condition string) (*Breakpoint, error) {
	if err := d.VM.Breakpoints.Set(address); err != nil {
		return nil, err
	}
	return d.Breakpoints.AddBreakpoint(address, temporary, condition), nil
}

// Disarm removes the breakpoint at address from both the host-side
// manager and the Core's breakpoint set.
func (d *Debugger) Disarm(address uint64) error {
	if err := d.VM.Breakpoints.Clear(address); err != nil {
		return err
	}
	return d.Breakpoints.DeleteBreakpointAt(address)
}

// ShouldBreak reports whether host-visible tooling should pause at the
// VM's current PC, beyond the plain vm.Event the Core itself returns:
// single-step mode, a hit-count-tracked breakpoint, or a changed
// watchpoint. Condition-expression evaluation (spec's original debugger
// supported arbitrary boolean expressions) is out of scope here; a
// Condition string is recorded but not evaluated — see DESIGN.md.
func (d *Debugger) ShouldBreak() (bool, string) {
	pc := d.VM.CPU.PC

	if d.StepMode == StepSingle {
		d.StepMode = StepNone
		return true, "single step"
	}

	if bp := d.Breakpoints.GetBreakpoint(pc); bp != nil {
		if !bp.Enabled {
			return false, ""
		}
		bp.HitCount++
		if bp.Temporary {
			_ = d.Breakpoints.DeleteBreakpoint(bp.ID)
			_ = d.VM.Breakpoints.Clear(pc)
		}
		return true, fmt.Sprintf("breakpoint %d", bp.ID)
	}

	if wp, changed := d.Watchpoints.CheckWatchpoints(d.VM); wp != nil && changed {
		return true, fmt.Sprintf("watchpoint %d: %s", wp.ID, wp.Expression)
	}

	return false, ""
}

// GetOutput returns and clears the output buffer.
func (d *Debugger) GetOutput() string {
	output := d.Output.String()
	d.Output.Reset()
	return output
}

// Printf writes formatted output to the output buffer.
func (d *Debugger) Printf(format string, args ...interface{}) {
	d.Output.WriteString(fmt.Sprintf(format, args...))
}

// Println writes a line to the output buffer.
func (d *Debugger) Println(args ...interface{}) {
	d.Output.WriteString(fmt.Sprintln(args...))
}
