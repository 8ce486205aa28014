// Package loader reads a flat NanoCore binary image from disk and loads it
// into a VM instance's memory, grounded on the reference CLI's
// load_program (original_source/cli/main.c): open the file, read it whole,
// and copy it into memory at the requested address. There is no assembler
// or object format here — a NanoCore program file is just the raw
// instruction words, little-endian, back to back (spec §4.1).
package loader

import (
	"fmt"
	"os"

	"github.com/nanocore-vm/nanocore/vm"
)

// LoadFile reads the file at path and copies its bytes into machine's
// memory starting at address, then sets PC to address (spec §4.5,
// §6.1 vm_load_program).
func LoadFile(machine *vm.VM, path string, address uint64) error {
	data, err := os.ReadFile(path) // #nosec G304 -- caller-specified program file path
	if err != nil {
		return fmt.Errorf("failed to read program file %q: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("program file %q is empty", path)
	}
	if len(data)%vm.InstructionSize != 0 {
		return fmt.Errorf("program file %q size %d is not a multiple of the %d-byte instruction width", path, len(data), vm.InstructionSize)
	}

	if err := machine.LoadProgram(data, address); err != nil {
		return fmt.Errorf("failed to load program %q: %w", path, err)
	}
	return nil
}
