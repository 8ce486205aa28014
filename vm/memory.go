package vm

import "fmt"

// Memory is the per-instance flat byte buffer described in spec §3: a
// single owned region of fixed length, byte-addressed, bounds-checked on
// every access. Unlike the teacher's segmented, permissioned ARM memory
// model, NanoCore's data model has no segments and no permission bits —
// just one flat buffer.
type Memory struct {
	data         []byte
	LittleEndian bool

	AccessCount uint64
	ReadCount   uint64
	WriteCount  uint64
}

// NewMemory allocates a zeroed buffer of the given size. size must be > 0;
// callers (vm.New) are responsible for enforcing the larger MinMemorySize
// floor spec §9's Open Questions resolution calls for.
func NewMemory(size uint64) (*Memory, error) {
	if size == 0 {
		return nil, fmt.Errorf("memory size must be > 0")
	}
	return &Memory{
		data:         make([]byte, size),
		LittleEndian: true,
	}, nil
}

// Size returns the configured memory_size.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

func (m *Memory) checkBounds(address, size uint64) error {
	if address+size < address {
		return fmt.Errorf("memory access at 0x%X size %d overflows address space", address, size)
	}
	if address+size > m.Size() {
		return fmt.Errorf("memory access violation: address 0x%X size %d exceeds memory_size %d", address, size, m.Size())
	}
	return nil
}

// ReadByte reads a single byte at address.
func (m *Memory) ReadByte(address uint64) (byte, error) {
	if err := m.checkBounds(address, 1); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return m.data[address], nil
}

// WriteByte writes a single byte at address.
func (m *Memory) WriteByte(address uint64, value byte) error {
	if err := m.checkBounds(address, 1); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.data[address] = value
	return nil
}

// ReadWord32 reads a 32-bit little-endian instruction word at address
// (spec §4.1, §6.2). Used by fetch.
func (m *Memory) ReadWord32(address uint64) (uint32, error) {
	if err := m.checkBounds(address, 4); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	b := m.data[address : address+4]
	if m.LittleEndian {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
	}
	return uint32(b[3]) | uint32(b[2])<<8 | uint32(b[1])<<16 | uint32(b[0])<<24, nil
}

// ReadDword reads a 64-bit little-endian value at address (the ST store
// width implied by a 64-bit wordsize ISA, spec §4.2).
func (m *Memory) ReadDword(address uint64) (uint64, error) {
	if err := m.checkBounds(address, 8); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	b := m.data[address : address+8]
	var v uint64
	if m.LittleEndian {
		for i := 7; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
	} else {
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(b[i])
		}
	}
	return v, nil
}

// WriteDword writes a 64-bit little-endian value at address.
func (m *Memory) WriteDword(address uint64, value uint64) error {
	if err := m.checkBounds(address, 8); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	b := m.data[address : address+8]
	if m.LittleEndian {
		for i := 0; i < 8; i++ {
			b[i] = byte(value >> (8 * uint(i)))
		}
	} else {
		for i := 0; i < 8; i++ {
			b[7-i] = byte(value >> (8 * uint(i)))
		}
	}
	return nil
}

// LoadBytes copies data into memory starting at address, e.g. for
// vm_load_program (spec §4.5, §6.1).
func (m *Memory) LoadBytes(address uint64, data []byte) error {
	if err := m.checkBounds(address, uint64(len(data))); err != nil {
		return fmt.Errorf("failed to load program: %w", err)
	}
	copy(m.data[address:], data)
	return nil
}

// GetBytes returns a copy of length bytes starting at address, e.g. for
// vm_read_memory (spec §4.5, §6.1).
func (m *Memory) GetBytes(address, length uint64) ([]byte, error) {
	if err := m.checkBounds(address, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.data[address:address+length])
	return out, nil
}

// Reset zeros the buffer and the access counters. Note: vm.Reset (spec
// §3, Lifecycle) does NOT call this — per the Open Question resolution in
// SPEC_FULL.md §9, reset preserves memory. Memory.Reset exists for
// completeness and is not used by vm.Reset.
func (m *Memory) Reset() {
	for i := range m.data {
		m.data[i] = 0
	}
	m.AccessCount = 0
	m.ReadCount = 0
	m.WriteCount = 0
}
