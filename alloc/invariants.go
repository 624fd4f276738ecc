package alloc

import "fmt"

// CheckInvariants is an O(n) structural sweep intended for debug builds
// and tests, not the allocator's hot path. It verifies boundary-tag
// consistency, tiling, that no two free blocks sit adjacent, free-list
// membership, and size-class residency, and returns the first violation
// found, or nil. A violation is also logged at debug level through the
// logger given by WithLogger.
func (h *Heap) CheckInvariants() (err error) {
	defer func() {
		if err != nil {
			h.log.Debug("invariant check failed", "err", err)
		}
	}()
	mem := h.mgr.Memory()

	freeByWalk := make(map[uint32]uint32) // addr -> size, for blocks the tile walk saw as free
	prevFree := false
	addr := h.origin
	for addr < h.High() {
		size, free, ok := readHeader(mem, addr)
		if !ok || size < minBlockSize {
			return fmt.Errorf("alloc: check: unreadable or undersized header at 0x%x", addr)
		}
		fSize, fFree, fok := readWordAt(mem, footerAddr(addr, size))
		if !fok || fSize != size || fFree != free {
			return fmt.Errorf("alloc: check: header/footer mismatch at 0x%x", addr)
		}
		if free && prevFree {
			return fmt.Errorf("alloc: check: adjacent free blocks at/before 0x%x", addr)
		}
		if free {
			freeByWalk[addr] = size
		}
		prevFree = free
		addr = rightAddr(addr, size)
	}
	if addr != h.High() {
		return fmt.Errorf("alloc: check: block walk ended at 0x%x, want heap_hi 0x%x", addr, h.High())
	}

	seen := make(map[uint32]bool)
	for bin, head := range h.fl.heads {
		cur := head
		for cur != noAddr {
			size, free, ok := readHeader(mem, cur)
			if !ok || !free {
				return fmt.Errorf("alloc: check: bin %d holds non-free or unreadable block at 0x%x", bin, cur)
			}
			if got := binOf(size, h.cfg); got != bin {
				return fmt.Errorf("alloc: check: block at 0x%x of size %d sits in bin %d, wants bin %d", cur, size, bin, got)
			}
			if _, ok := freeByWalk[cur]; !ok {
				return fmt.Errorf("alloc: check: bin %d references block at 0x%x not seen by the tile walk", bin, cur)
			}
			seen[cur] = true
			cur = h.fl.next(cur)
		}
	}
	for addr := range freeByWalk {
		if !seen[addr] {
			return fmt.Errorf("alloc: check: free block at 0x%x unreachable from any bin", addr)
		}
	}

	return nil
}
