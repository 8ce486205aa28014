package api

import (
	"time"

	"github.com/nanocore-vm/nanocore/vm"
)

// SessionCreateRequest represents a request to create a new VM session.
type SessionCreateRequest struct {
	MemorySize uint64 `json:"memorySize,omitempty"` // bytes; 0 = config default
}

// SessionCreateResponse represents the response from creating a session.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoadProgramRequest represents a request to load a flat binary image.
type LoadProgramRequest struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
}

// FlagsResponse unpacks the Flags word into individually named bits
// (spec §3) instead of exposing the raw bitmask over the wire.
type FlagsResponse struct {
	Zero            bool `json:"zero"`
	Carry           bool `json:"carry"`
	Overflow        bool `json:"overflow"`
	Negative        bool `json:"negative"`
	InterruptEnable bool `json:"interruptEnable"`
	UserMode        bool `json:"userMode"`
	Halted          bool `json:"halted"`
}

// StateResponse represents a full processor state snapshot (spec §6.1 vm_get_state).
type StateResponse struct {
	PC           uint64                     `json:"pc"`
	SP           uint64                     `json:"sp"`
	Flags        FlagsResponse              `json:"flags"`
	Registers    [vm.GPRCount]uint64        `json:"registers"`
	PerfCounters [vm.PerfCounterCount]uint64 `json:"perfCounters"`
}

// RegisterResponse represents a single general-purpose register's value.
type RegisterResponse struct {
	Index uint8  `json:"index"`
	Value uint64 `json:"value"`
}

// SetRegisterRequest represents a request to overwrite a single GPR.
type SetRegisterRequest struct {
	Value uint64 `json:"value"`
}

// MemoryReadResponse represents a block of raw memory.
type MemoryReadResponse struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
}

// MemoryWriteRequest represents a request to overwrite a block of memory.
type MemoryWriteRequest struct {
	Address uint64 `json:"address"`
	Data    []byte `json:"data"`
}

// BreakpointRequest represents a request to add or remove a breakpoint.
type BreakpointRequest struct {
	Address uint64 `json:"address"`
}

// BreakpointsResponse represents the Core's current armed breakpoint set.
type BreakpointsResponse struct {
	Addresses []uint64 `json:"addresses"`
}

// StepResponse represents the outcome of a single vm_step call.
type StepResponse struct {
	Event EventCodeResponse `json:"event"`
	State StateResponse     `json:"state"`
}

// RunRequest bounds how many instructions vm_run may retire before
// returning. MaxSteps 0 falls back to the server's configured
// max_instructions; when that is also 0, the run is unbounded.
type RunRequest struct {
	MaxSteps uint64 `json:"maxSteps,omitempty"` // 0 = server default
}

// EventCodeResponse names an EventCode for JSON instead of a bare int.
type EventCodeResponse struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// PerfCounterResponse represents a single performance counter's value.
type PerfCounterResponse struct {
	Slot  uint8  `json:"slot"`
	Value uint64 `json:"value"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a simple success response.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Event represents a WebSocket event envelope.
type Event struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func flagBit(flags uint64, bit uint) bool {
	return flags&(uint64(1)<<bit) != 0
}

func flagsToResponse(flags uint64) FlagsResponse {
	return FlagsResponse{
		Zero:            flagBit(flags, vm.FlagZero),
		Carry:           flagBit(flags, vm.FlagCarry),
		Overflow:        flagBit(flags, vm.FlagOverflow),
		Negative:        flagBit(flags, vm.FlagNegative),
		InterruptEnable: flagBit(flags, vm.FlagInterruptEnable),
		UserMode:        flagBit(flags, vm.FlagUserMode),
		Halted:          flagBit(flags, vm.FlagHalt),
	}
}

func stateToResponse(s vm.StateSnapshot) StateResponse {
	return StateResponse{
		PC:           s.PC,
		SP:           s.SP,
		Flags:        flagsToResponse(s.Flags),
		Registers:    s.GPRs,
		PerfCounters: s.PerfCounters,
	}
}

func eventToResponse(code int) EventCodeResponse {
	names := map[int]string{
		-1: "none",
		0:  "halted",
		1:  "breakpoint",
		2:  "exception",
		3:  "device_interrupt",
	}
	name, ok := names[code]
	if !ok {
		name = "unknown"
	}
	return EventCodeResponse{Code: code, Name: name}
}
