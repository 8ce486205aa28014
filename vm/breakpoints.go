package vm

import "fmt"

// Breakpoints is the bounded, deduplicated set of up to MaxBreakpoints
// addresses that is a VM Instance attribute per spec §3. It is the plain
// address set the embedding API's vm_set_breakpoint/vm_clear_breakpoint
// operate on (spec §6.1); richer bookkeeping (IDs, hit counts, condition
// strings) lives one layer up in the debugger package, grounded on the
// teacher's debugger.BreakpointManager but kept out of the Core itself.
type Breakpoints struct {
	addrs map[uint64]struct{}
}

// NewBreakpoints returns an empty breakpoint set.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{addrs: make(map[uint64]struct{})}
}

// Set arms a breakpoint at address. Re-arming an already-armed address is
// a no-op success (spec §9's Open Question resolution: deduplicate).
// Returns an error once the set already holds MaxBreakpoints distinct
// addresses.
func (b *Breakpoints) Set(address uint64) error {
	if _, exists := b.addrs[address]; exists {
		return nil
	}
	if len(b.addrs) >= MaxBreakpoints {
		return fmt.Errorf("breakpoint set is full (max %d)", MaxBreakpoints)
	}
	b.addrs[address] = struct{}{}
	return nil
}

// Clear disarms the breakpoint at address. Returns an error if no
// breakpoint was armed there.
func (b *Breakpoints) Clear(address uint64) error {
	if _, exists := b.addrs[address]; !exists {
		return fmt.Errorf("no breakpoint at 0x%X", address)
	}
	delete(b.addrs, address)
	return nil
}

// Has reports whether address currently has a breakpoint armed.
func (b *Breakpoints) Has(address uint64) bool {
	_, exists := b.addrs[address]
	return exists
}

// ClearAll disarms every breakpoint, e.g. for vm.Reset.
func (b *Breakpoints) ClearAll() {
	b.addrs = make(map[uint64]struct{})
}

// Len returns the number of armed breakpoints.
func (b *Breakpoints) Len() int {
	return len(b.addrs)
}

// Addresses returns the armed addresses in no particular order.
func (b *Breakpoints) Addresses() []uint64 {
	out := make([]uint64, 0, len(b.addrs))
	for addr := range b.addrs {
		out = append(out, addr)
	}
	return out
}
