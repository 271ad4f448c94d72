package frame

import (
	"sync"
	"unsafe"
)

// AddressTracker counts how often a stage's working buffer moved to a new address.
// A steady-state pipeline should show a small constant count.
type AddressTracker struct {
	mu       sync.Mutex
	address  uintptr
	reallocs uint64
}

// Track records the address of buf.
func (t *AddressTracker) Track(buf []byte) {
	if len(buf) == 0 {
		return
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	t.mu.Lock()
	if addr != t.address {
		t.address = addr
		t.reallocs++
	}
	t.mu.Unlock()
}

// Reallocs returns the number of address changes seen so far.
func (t *AddressTracker) Reallocs() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reallocs
}
