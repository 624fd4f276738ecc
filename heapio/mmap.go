//go:build linux || darwin

package heapio

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"
)

// mmapPageSize mirrors the host's page granularity for commit/decommit.
// 4KiB is the common case on both linux/amd64 and darwin; callers that need
// the exact runtime value can still grow in units smaller than a page, as
// with WasmBreakPointer, because commits are rounded up internally.
const mmapPageSize = 4096

// MMapBreakPointer backs the heap with a single large anonymous mmap
// reservation made PROT_NONE up front, committing pages via mprotect as
// Grow advances the break pointer. This is a second, independent
// BreakPointer host alongside WasmBreakPointer, an alternate transport for
// the HRM, not a second allocation strategy, so it never influences bin
// selection, splitting, or coalescing in package alloc.
type MMapBreakPointer struct {
	region    []byte // PROT_NONE reservation, re-sliced for committed access
	reserved  uint32
	committed uint32
}

// NewMMapBreakPointer reserves reservedBytes of address space (rounded up
// to a whole number of pages) without committing any of it.
func NewMMapBreakPointer(reservedBytes uint32) (*MMapBreakPointer, error) {
	m := &MMapBreakPointer{}
	if err := m.mapReservation(reservedBytes); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MMapBreakPointer) mapReservation(reservedBytes uint32) error {
	size := alignUpMMap(reservedBytes, mmapPageSize)
	region, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return fmt.Errorf("heapio: mmap reservation of %d bytes: %w", size, err)
	}
	m.region = region
	m.reserved = size
	m.committed = 0
	return nil
}

func alignUpMMap(n, a uint32) uint32 {
	return (n + a - 1) &^ (a - 1)
}

// Grow implements BreakPointer.
func (m *MMapBreakPointer) Grow(n uint32) (uint32, error) {
	old := m.committed
	need := old + n
	if need > m.reserved {
		return 0, fmt.Errorf("heapio: grow past mmap reservation of %d bytes: %w", m.reserved, ErrHeapExhausted)
	}
	committedPages := alignUpMMap(m.committed, mmapPageSize)
	neededPages := alignUpMMap(need, mmapPageSize)
	if neededPages > committedPages {
		if err := unix.Mprotect(m.region[committedPages:neededPages], unix.PROT_READ|unix.PROT_WRITE); err != nil {
			return 0, fmt.Errorf("heapio: mprotect commit %d..%d: %w: %w", committedPages, neededPages, ErrHeapExhausted, err)
		}
	}
	m.committed = need
	return old, nil
}

// Low implements BreakPointer.
func (m *MMapBreakPointer) Low() uint32 { return 0 }

// High implements BreakPointer.
func (m *MMapBreakPointer) High() uint32 { return m.committed }

// Reset implements BreakPointer by decommitting back to PROT_NONE and
// resetting the break pointer to zero, without releasing the reservation.
func (m *MMapBreakPointer) Reset() error {
	if m.committed > 0 {
		if err := unix.Mprotect(m.region[:alignUpMMap(m.committed, mmapPageSize)], unix.PROT_NONE); err != nil {
			return fmt.Errorf("heapio: mprotect decommit on reset: %w", err)
		}
	}
	m.committed = 0
	return nil
}

// Close releases the address-space reservation entirely.
func (m *MMapBreakPointer) Close() error {
	if m.region == nil {
		return nil
	}
	err := unix.Munmap(m.region)
	m.region = nil
	return err
}

// Size implements Memory.
func (m *MMapBreakPointer) Size() uint32 { return m.committed }

// Read implements Memory.
func (m *MMapBreakPointer) Read(off, count uint32) ([]byte, bool) {
	if off+count > m.committed {
		return nil, false
	}
	out := make([]byte, count)
	copy(out, m.region[off:off+count])
	return out, true
}

// Write implements Memory.
func (m *MMapBreakPointer) Write(off uint32, data []byte) bool {
	if off+uint32(len(data)) > m.committed {
		return false
	}
	copy(m.region[off:], data)
	return true
}

// ReadUint32 implements Memory.
func (m *MMapBreakPointer) ReadUint32(off uint32) (uint32, bool) {
	if off+4 > m.committed {
		return 0, false
	}
	return binary.LittleEndian.Uint32(m.region[off : off+4]), true
}

// WriteUint32 implements Memory.
func (m *MMapBreakPointer) WriteUint32(off uint32, v uint32) bool {
	if off+4 > m.committed {
		return false
	}
	binary.LittleEndian.PutUint32(m.region[off:off+4], v)
	return true
}
