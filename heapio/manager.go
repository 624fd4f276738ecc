package heapio

import "fmt"

// Manager is the Heap Region Manager: it wraps a BreakPointer and is the
// sole owner of heap_lo/heap_hi bookkeeping as seen by package alloc. It
// never coalesces or tracks blocks; it is oblivious to payload structure,
// leaving block layout entirely to package alloc.
type Manager struct {
	bp BreakPointer
}

// NewManager wraps bp as a Manager.
func NewManager(bp BreakPointer) *Manager {
	return &Manager{bp: bp}
}

// Grow extends the heap upward by n bytes and returns the previous high
// address. A backend failure is always reported as ErrHeapExhausted.
func (m *Manager) Grow(n uint32) (uint32, error) {
	old, err := m.bp.Grow(n)
	if err != nil {
		return 0, fmt.Errorf("%w", err)
	}
	return old, nil
}

// Low returns the inclusive low address of the heap.
func (m *Manager) Low() uint32 { return m.bp.Low() }

// High returns the exclusive high address of the heap.
func (m *Manager) High() uint32 { return m.bp.High() }

// Contains reports whether p lies within [Low(), High()).
func (m *Manager) Contains(p uint32) bool {
	return p >= m.bp.Low() && p < m.bp.High()
}

// Reset collapses the heap back to empty between trace runs. Callers (the
// Allocator Engine) must re-initialize their bin heads after Reset.
func (m *Manager) Reset() error { return m.bp.Reset() }

// Memory exposes the underlying byte-addressable view for block layout
// code.
func (m *Manager) Memory() Memory { return m.bp }
