package alloc

// Allocate satisfies a request for n bytes:
//  1. round n up to a full block size;
//  2. search bins from bin_of(req) upward for a first-fit;
//  3. failing that, extend the topmost block if it is free;
//  4. failing that, grow the heap for a brand-new block.
func (h *Heap) Allocate(n uint32) (uint32, error) {
	req := h.requestSize(n)

	if ptr, ok := h.allocateFromFreeList(req); ok {
		return ptr, nil
	}
	if ptr, ok, err := h.allocateByExtendingTop(req); ok || err != nil {
		return ptr, err
	}
	return h.allocateFresh(req)
}

func (h *Heap) requestSize(n uint32) uint32 {
	if n == 0 {
		n = 1
	}
	req := alignUp(headerSize+maxU32(n, minPayload)+footerSize, h.cfg.Alignment)
	if req < minBlockSize {
		req = minBlockSize
	}
	return req
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// allocateFromFreeList walks bins ascending from bin_of(req), pulls the
// first adequate block, shrinks it to size, and hands back its payload.
func (h *Heap) allocateFromFreeList(req uint32) (uint32, bool) {
	for bin := binOf(req, h.cfg); bin < h.cfg.NumBins(); bin++ {
		addr, _, ok := h.fl.pullFit(req, bin)
		if !ok {
			continue
		}
		h.shrink(addr, req)
		return addr + headerSize, true
	}
	return 0, false
}

// allocateByExtendingTop: if the topmost block is free, grow the heap by
// exactly the shortfall and hand the whole enlarged block out. This
// optimization requires a way to test "is this the last block?", which
// the boundary-tag layout gives for free via h.lastAddr.
func (h *Heap) allocateByExtendingTop(req uint32) (uint32, bool, error) {
	if h.lastAddr == noAddr {
		return 0, false, nil
	}
	topSize, topFree, ok := readHeader(h.mgr.Memory(), h.lastAddr)
	if !ok || !topFree {
		return 0, false, nil
	}
	if rightAddr(h.lastAddr, topSize) != h.High() {
		return 0, false, nil
	}

	bin := binOf(topSize, h.cfg)
	h.fl.extract(h.lastAddr, bin)
	if _, err := h.mgr.Grow(req - topSize); err != nil {
		h.fl.push(h.lastAddr, topSize, bin)
		return 0, false, err
	}
	writeHeaderFooter(h.mgr.Memory(), h.lastAddr, req, false)
	return h.lastAddr + headerSize, true, nil
}

// allocateFresh grows the heap for a brand-new block.
func (h *Heap) allocateFresh(req uint32) (uint32, error) {
	addr, err := h.mgr.Grow(req)
	if err != nil {
		return 0, err
	}
	writeHeaderFooter(h.mgr.Memory(), addr, req, false)
	h.lastAddr = addr
	return addr + headerSize, nil
}

// Free validates p, then coalesces its block with any free neighbors.
func (h *Heap) Free(ptr uint32) error {
	if ptr == 0 {
		return nil
	}
	if ptr < h.origin+headerSize || ptr >= h.High() {
		return &FaultError{Kind: FaultInvalidFree, Addr: ptr, Message: "pointer outside heap"}
	}
	addr := ptr - headerSize
	size, free, ok := readHeader(h.mgr.Memory(), addr)
	if !ok || rightAddr(addr, size) > h.High() {
		return &FaultError{Kind: FaultCorruptBoundary, Addr: ptr, Message: "header unreadable or out of bounds"}
	}
	if free {
		return &FaultError{Kind: FaultDoubleFree, Addr: ptr, Message: "block already on a free list"}
	}
	if fSize, fFree, fok := readWordAt(h.mgr.Memory(), footerAddr(addr, size)); !fok || fSize != size || fFree {
		return &FaultError{Kind: FaultCorruptBoundary, Addr: ptr, Message: "header/footer size or free-flag mismatch"}
	}

	h.coalesce(addr)
	return nil
}

// coalesce merges a free (or about-to-be-free) block at addr with adjacent
// free neighbors, so no two free blocks ever sit side by side, then pushes
// the survivor onto its bin. Right-merge precedes left-merge: the order
// matters for correctness of the last-block anchor.
func (h *Heap) coalesce(addr uint32) {
	mem := h.mgr.Memory()
	size, _, _ := readHeader(mem, addr)

	if rAddr := rightAddr(addr, size); rAddr < h.High() {
		if rSize, rFree, ok := readHeader(mem, rAddr); ok && rFree {
			h.fl.extract(rAddr, binOf(rSize, h.cfg))
			size += rSize
		}
	}

	finalAddr := addr
	if addr > h.origin {
		if lSize, lFree, ok := readWordAt(mem, addr-footerSize); ok && lFree {
			lAddr := addr - lSize
			h.fl.extract(lAddr, binOf(lSize, h.cfg))
			size += lSize
			finalAddr = lAddr
		}
	}

	writeHeaderFooter(mem, finalAddr, size, true)
	h.fl.push(finalAddr, size, binOf(size, h.cfg))

	if rightAddr(finalAddr, size) == h.High() {
		h.lastAddr = finalAddr
	}
}

// shrink splits an in-use block at addr (whose current size is read from
// its header) into a req-sized head and, if the remainder would be at
// least ShrinkMinSize, a free remainder block to its right. The remainder
// is then coalesced, since, unlike a block fresh off a free list (whose
// right neighbor is guaranteed non-free), a block shrunk out of a live
// Reallocate may have a free right neighbor.
func (h *Heap) shrink(addr, req uint32) {
	mem := h.mgr.Memory()
	size, _, _ := readHeader(mem, addr)
	rem := size - req
	if rem < h.cfg.ShrinkMinSize {
		return
	}

	wasTop := addr == h.lastAddr
	writeHeaderFooter(mem, addr, req, false)

	remAddr := rightAddr(addr, req)
	writeHeaderFooter(mem, remAddr, rem, true)
	if wasTop {
		h.lastAddr = remAddr
	}
	h.coalesce(remAddr)
}
