package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nanocore-vm/nanocore/vm"
)

const testMemSize = 1 << 20

func newTestVM(t *testing.T) *vm.VM {
	t.Helper()
	machine, err := vm.New(testMemSize)
	if err != nil {
		t.Fatalf("vm.New: %v", err)
	}
	return machine
}

func encodeHalt() []byte {
	// opcode HALT (0x21), all other fields zero
	word := uint32(0x21) << 26
	return []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}
}

func TestLoadFile_LoadsBytesAndSetsPC(t *testing.T) {
	machine := newTestVM(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "program.bin")
	if err := os.WriteFile(path, encodeHalt(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := LoadFile(machine, path, 0x20000); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if machine.CPU.PC != 0x20000 {
		t.Errorf("PC = 0x%X, want 0x20000", machine.CPU.PC)
	}

	word, err := machine.Memory.ReadWord32(0x20000)
	if err != nil {
		t.Fatalf("ReadWord32: %v", err)
	}
	if word != uint32(0x21)<<26 {
		t.Errorf("loaded word = 0x%X, want HALT encoding", word)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	machine := newTestVM(t)
	if err := LoadFile(machine, "/nonexistent/path/program.bin", 0x10000); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFile_EmptyFile(t *testing.T) {
	machine := newTestVM(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := LoadFile(machine, path, 0x10000); err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestLoadFile_MisalignedSize(t *testing.T) {
	machine := newTestVM(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "misaligned.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := LoadFile(machine, path, 0x10000); err == nil {
		t.Fatal("expected error for a size that is not a multiple of 4")
	}
}

func TestLoadFile_OutOfBoundsAddress(t *testing.T) {
	machine := newTestVM(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "program.bin")
	if err := os.WriteFile(path, encodeHalt(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := LoadFile(machine, path, testMemSize); err == nil {
		t.Fatal("expected error loading past the end of memory")
	}
}
