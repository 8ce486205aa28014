// Package nanocore is the stable, handle-based embedding API described in
// spec §6.1. It is ported close to 1:1 from the original C binding layer
// (glue/ffi/nanocore_ffi.c) — same status codes, same event codes, same
// per-call EINVAL-on-bad-handle behavior — but expressed as Go methods on
// an explicit *API value instead of free functions over package-level
// globals, since Go callers have no reason to share one process-wide VM
// table the way a C shared library's callers do.
package nanocore

import (
	"errors"

	"github.com/nanocore-vm/nanocore/registry"
	"github.com/nanocore-vm/nanocore/vm"
)

// Status is the embedding API's integer return code (spec §6.1).
type Status int

const (
	StatusOK     Status = 0
	StatusError  Status = -1
	StatusENOMEM Status = -2
	StatusEINVAL Status = -3
	StatusEINIT  Status = -4
)

// EventCode mirrors vm.Event as the integer the embedding API surfaces
// across the language boundary (spec §6.1, vm_poll_event).
type EventCode int

const (
	EventHalted          EventCode = 0
	EventBreakpoint      EventCode = 1
	EventException       EventCode = 2
	EventDeviceInterrupt EventCode = 3 // reserved, never emitted (spec §3)
	// EventNone is not part of the embedding API's event enumeration; it
	// is what VMStep/VMRun return when execution simply continued.
	EventNone EventCode = -1
)

// API is the process-local embedding surface: one Instance Registry plus
// the handle-based operations layered over it. Construct with New; the
// zero value is not usable.
type API struct {
	registry *registry.Registry
}

// New constructs an embedding API instance (spec §6.1, nanocore_init).
func New() *API {
	return &API{registry: registry.New()}
}

// VMCreate allocates a new VM instance with the given memory_size and
// returns its handle (spec §6.1, vm_create). memory_size too small to
// hold the default entry point and stack is EINVAL (spec §9's Open
// Question resolution); a full Instance Registry is StatusError, since
// that is a resource-exhaustion condition rather than a bad argument.
func (a *API) VMCreate(memorySize uint64) (int, Status) {
	if memorySize == 0 {
		return 0, StatusEINVAL
	}
	handle, err := a.registry.Create(memorySize)
	if err != nil {
		if errors.Is(err, vm.ErrMemoryTooSmall) {
			return 0, StatusEINVAL
		}
		return 0, StatusError
	}
	return handle, StatusOK
}

// VMDestroy frees the instance at handle (spec §6.1, vm_destroy).
func (a *API) VMDestroy(handle int) Status {
	if err := a.registry.Destroy(handle); err != nil {
		return StatusEINVAL
	}
	return StatusOK
}

// VMReset reinitializes the instance at handle (spec §6.1, vm_reset).
func (a *API) VMReset(handle int) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	instance.Reset()
	return StatusOK
}

// VMStep executes a single instruction on the instance at handle (spec
// §6.1, vm_step). The reference C binding folds the event code into the
// same integer as the status (nanocore_ffi.c's nanocore_vm_step returns
// EVENT_BREAKPOINT/EVENT_HALTED/NANOCORE_ERROR/NANOCORE_OK from one
// namespace); this keeps that distinction but as two return values
// instead of one overloaded int.
func (a *API) VMStep(handle int) (EventCode, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return 0, StatusEINVAL
	}
	event := instance.Step()
	return fromVMEvent(event), StatusOK
}

// VMRun repeatedly steps the instance at handle until it halts, hits a
// breakpoint or exception, or (if maxInstructions > 0) has retired that
// many instructions (spec §6.1, vm_run).
func (a *API) VMRun(handle int, maxInstructions uint64) (EventCode, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return 0, StatusEINVAL
	}
	event := instance.Run(maxInstructions)
	return fromVMEvent(event), StatusOK
}

// fromVMEvent maps the Core's vm.Event to the embedding API's EventCode.
// vm.EventNone has no embedding-API equivalent; callers that only care
// about terminal conditions should treat it as "still running."
func fromVMEvent(e vm.Event) EventCode {
	switch e {
	case vm.EventHalted:
		return EventHalted
	case vm.EventBreakpoint:
		return EventBreakpoint
	case vm.EventException:
		return EventException
	default:
		return EventNone
	}
}

// VMGetState returns a full processor state snapshot for handle (spec
// §6.1, vm_get_state).
func (a *API) VMGetState(handle int) (vm.StateSnapshot, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return vm.StateSnapshot{}, StatusEINVAL
	}
	var snap vm.StateSnapshot
	snap.Capture(instance.CPU)
	return snap, StatusOK
}

// VMGetRegister reads GPR regIndex (0-31) from the instance at handle
// (spec §6.1, vm_get_register).
func (a *API) VMGetRegister(handle, regIndex int) (uint64, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return 0, StatusEINVAL
	}
	if regIndex < 0 || regIndex >= vm.GPRCount {
		return 0, StatusEINVAL
	}
	return instance.CPU.GetRegister(regIndex), StatusOK
}

// VMSetRegister writes GPR regIndex (0-31) on the instance at handle.
// Writes to R0 are silently discarded (spec §6.1, vm_set_register).
func (a *API) VMSetRegister(handle, regIndex int, value uint64) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	if regIndex < 0 || regIndex >= vm.GPRCount {
		return StatusEINVAL
	}
	instance.CPU.SetRegister(regIndex, value)
	return StatusOK
}

// VMLoadProgram copies data into the instance's memory at address and
// sets PC to address (spec §6.1, vm_load_program).
func (a *API) VMLoadProgram(handle int, data []byte, address uint64) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	if err := instance.LoadProgram(data, address); err != nil {
		return StatusEINVAL
	}
	return StatusOK
}

// VMReadMemory returns a copy of length bytes starting at address from
// the instance at handle (spec §6.1, vm_read_memory).
func (a *API) VMReadMemory(handle int, address, length uint64) ([]byte, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return nil, StatusEINVAL
	}
	data, err := instance.Memory.GetBytes(address, length)
	if err != nil {
		return nil, StatusEINVAL
	}
	return data, StatusOK
}

// VMWriteMemory copies data into the instance's memory at address (spec
// §6.1, vm_write_memory).
func (a *API) VMWriteMemory(handle int, address uint64, data []byte) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	if err := instance.Memory.LoadBytes(address, data); err != nil {
		return StatusEINVAL
	}
	return StatusOK
}

// VMSetBreakpoint arms a breakpoint at address on the instance at handle
// (spec §6.1, vm_set_breakpoint). Returns StatusError once the instance's
// breakpoint set is already at vm.MaxBreakpoints.
func (a *API) VMSetBreakpoint(handle int, address uint64) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	if err := instance.Breakpoints.Set(address); err != nil {
		return StatusError
	}
	return StatusOK
}

// VMClearBreakpoint disarms the breakpoint at address on the instance at
// handle (spec §6.1, vm_clear_breakpoint).
func (a *API) VMClearBreakpoint(handle int, address uint64) Status {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return StatusEINVAL
	}
	if err := instance.Breakpoints.Clear(address); err != nil {
		return StatusError
	}
	return StatusOK
}

// VMListBreakpoints returns the instance's currently armed breakpoint
// addresses. Not part of the reference C binding (nanocore_ffi.c has no
// enumeration call), added so an HTTP front-end can render the full set
// without having to probe every address (spec.md §6.6).
func (a *API) VMListBreakpoints(handle int) ([]uint64, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return nil, StatusEINVAL
	}
	return instance.Breakpoints.Addresses(), StatusOK
}

// VMGetPerfCounter reads performance counter slot counterIndex (0-7) from
// the instance at handle (spec §6.1, vm_get_perf_counter).
func (a *API) VMGetPerfCounter(handle, counterIndex int) (uint64, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return 0, StatusEINVAL
	}
	if counterIndex < 0 || counterIndex >= vm.PerfCounterCount {
		return 0, StatusEINVAL
	}
	return instance.CPU.PerfCounters[counterIndex], StatusOK
}

// VMPollEvent reports the instance's current terminal condition, if any
// (spec §6.1, vm_poll_event). DEVICE_INTERRUPT is never emitted (spec §3
// reserves it); breakpoint/exception events are surfaced by the return
// value of Step/Run at the vm package layer rather than polled state, so
// the only condition VMPollEvent can observe after the fact is halted.
func (a *API) VMPollEvent(handle int) (EventCode, uint64, Status) {
	instance, err := a.registry.Get(handle)
	if err != nil {
		return 0, 0, StatusEINVAL
	}
	if instance.Halted {
		return EventHalted, 0, StatusOK
	}
	return 0, 0, StatusError
}
