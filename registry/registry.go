// Package registry implements the Instance Registry (spec §3): a bounded
// table mapping small integer handles to live VM instances.
// It is the Go object grounded on the original C binding's `static
// vm_instance_t* vms[256]` array and `next_vm_id` counter
// (glue/ffi/nanocore_ffi.c) — turned into an explicit, mutex-guarded type
// instead of package-level globals, since nothing about the embedding API
// requires process-wide singleton state.
package registry

import (
	"fmt"
	"sync"

	"github.com/nanocore-vm/nanocore/vm"
)

// MaxInstances is the size of the handle table (spec §3).
const MaxInstances = 256

// Registry owns a bounded pool of VM instances addressed by handle. Handles
// are allocated at the lowest free slot, matching the reference
// implementation's linear scan, and vm_id is a separate monotonic counter
// that never repeats even as handles are recycled.
type Registry struct {
	mu     sync.RWMutex
	slots  [MaxInstances]*vm.VM
	nextID int
}

// New returns an empty registry with the first vm_id set to 1, matching
// the reference implementation's `next_vm_id = 1`.
func New() *Registry {
	return &Registry{nextID: 1}
}

// Create allocates a new VM instance at the lowest free handle and returns
// that handle (spec §6.1, vm_create). Returns an error once all
// MaxInstances slots are occupied.
func (r *Registry) Create(memorySize uint64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle := -1
	for i := 0; i < MaxInstances; i++ {
		if r.slots[i] == nil {
			handle = i
			break
		}
	}
	if handle == -1 {
		return 0, fmt.Errorf("registry full: %d instances already allocated", MaxInstances)
	}

	instance, err := vm.New(memorySize)
	if err != nil {
		return 0, err
	}
	instance.VMID = r.nextID
	r.nextID++
	r.slots[handle] = instance

	return handle, nil
}

// Get returns the VM instance at handle, or an error if the handle is out
// of range or currently unallocated (spec §6.1, every operation's
// EINVAL-on-bad-handle behavior).
func (r *Registry) Get(handle int) (*vm.VM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.get(handle)
}

func (r *Registry) get(handle int) (*vm.VM, error) {
	if handle < 0 || handle >= MaxInstances || r.slots[handle] == nil {
		return nil, fmt.Errorf("invalid handle %d", handle)
	}
	return r.slots[handle], nil
}

// Destroy frees the instance at handle, making the slot available for
// reuse by a future Create (spec §6.1, vm_destroy).
func (r *Registry) Destroy(handle int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.get(handle); err != nil {
		return err
	}
	r.slots[handle] = nil
	return nil
}

// Count returns the number of currently allocated instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}
