package alloc

import "github.com/heapkit/heapalloc/heapio"

// freeList is the segregated free-list registry: NumBins head addresses,
// each the root of an intrusive doubly-linked list of free blocks whose
// links overlay payload bytes. Bins are kept sorted ascending by size,
// which enables best-fit within a bin (see DESIGN.md for why sorted bins
// were chosen over unsorted).
type freeList struct {
	mem   heapio.Memory
	cfg   Config
	heads []uint32
}

func newFreeList(mem heapio.Memory, cfg Config) *freeList {
	fl := &freeList{mem: mem, cfg: cfg, heads: make([]uint32, cfg.NumBins())}
	fl.reset()
	return fl
}

func (fl *freeList) reset() {
	for i := range fl.heads {
		fl.heads[i] = noAddr
	}
}

func (fl *freeList) next(addr uint32) uint32 {
	n, _ := linksAddr(addr)
	return readLink(fl.mem, n)
}

func (fl *freeList) prev(addr uint32) uint32 {
	_, p := linksAddr(addr)
	return readLink(fl.mem, p)
}

func (fl *freeList) setNext(addr, v uint32) {
	n, _ := linksAddr(addr)
	writeLink(fl.mem, n, v)
}

func (fl *freeList) setPrev(addr, v uint32) {
	_, p := linksAddr(addr)
	writeLink(fl.mem, p, v)
}

// push marks addr as free (size bytes, already written to its boundary
// tags by the caller) and inserts it into bins[bin], ascending by size.
func (fl *freeList) push(addr, size uint32, bin int) {
	prev := noAddr
	cur := fl.heads[bin]
	for cur != noAddr {
		curSize, _, _ := readHeader(fl.mem, cur)
		if curSize >= size {
			break
		}
		prev = cur
		cur = fl.next(cur)
	}

	fl.setNext(addr, cur)
	fl.setPrev(addr, prev)
	if cur != noAddr {
		fl.setPrev(cur, addr)
	}
	if prev == noAddr {
		fl.heads[bin] = addr
	} else {
		fl.setNext(prev, addr)
	}
}

// extract unlinks addr from bins[bin] without touching its free flag.
func (fl *freeList) extract(addr uint32, bin int) {
	p := fl.prev(addr)
	n := fl.next(addr)
	if p == noAddr {
		fl.heads[bin] = n
	} else {
		fl.setNext(p, n)
	}
	if n != noAddr {
		fl.setPrev(n, p)
	}
}

// pullFit scans bins[bin] for the first block with size >= want (first-fit
// within the bin; since the bin is sorted ascending, this coincides with
// best-fit), unlinks it, and marks it in-use. The freeList, not the
// caller, owns the free-to-in-use transition. It returns the block's
// address and its (unsplit) size.
func (fl *freeList) pullFit(want uint32, bin int) (addr uint32, size uint32, ok bool) {
	cur := fl.heads[bin]
	for cur != noAddr {
		curSize, _, _ := readHeader(fl.mem, cur)
		if curSize >= want {
			fl.extract(cur, bin)
			writeHeaderFooter(fl.mem, cur, curSize, false)
			return cur, curSize, true
		}
		cur = fl.next(cur)
	}
	return 0, 0, false
}
