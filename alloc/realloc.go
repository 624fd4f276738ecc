package alloc

// Reallocate resizes the block at ptr to hold n bytes:
//
//	ptr == 0            -> allocate(n)
//	n == 0               -> free(ptr); return 0
//	req == size(ptr)     -> return ptr unchanged
//	req <  size(ptr)     -> shrink in place
//	ptr is the top block -> grow in place by extending the heap
//	right(ptr) is free   -> absorb it, then shrink back down if oversized
//	otherwise            -> allocate, copy min(old, new) payload, free ptr
func (h *Heap) Reallocate(ptr uint32, n uint32) (uint32, error) {
	if ptr == 0 {
		return h.Allocate(n)
	}
	if n == 0 {
		return 0, h.Free(ptr)
	}
	if ptr < h.origin+headerSize || ptr >= h.High() {
		return 0, &FaultError{Kind: FaultInvalidFree, Addr: ptr, Message: "pointer outside heap"}
	}

	addr := ptr - headerSize
	mem := h.mgr.Memory()
	size, free, ok := readHeader(mem, addr)
	if !ok || free {
		return 0, &FaultError{Kind: FaultCorruptBoundary, Addr: ptr, Message: "header unreadable or already free"}
	}

	req := h.requestSize(n)

	switch {
	case req == size:
		return ptr, nil
	case req < size:
		h.shrink(addr, req)
		return ptr, nil
	}

	if rightAddr(addr, size) == h.High() {
		if _, err := h.mgr.Grow(req - size); err != nil {
			return 0, err
		}
		writeHeaderFooter(mem, addr, req, false)
		h.lastAddr = addr
		return ptr, nil
	}

	if rAddr := rightAddr(addr, size); rAddr < h.High() {
		if rSize, rFree, ok := readHeader(mem, rAddr); ok && rFree && size+rSize >= req {
			wasTop := rightAddr(rAddr, rSize) == h.High()
			h.fl.extract(rAddr, binOf(rSize, h.cfg))
			merged := size + rSize
			writeHeaderFooter(mem, addr, merged, false)
			if wasTop {
				h.lastAddr = addr
			}
			h.shrink(addr, req)
			return ptr, nil
		}
	}

	return h.move(ptr, addr, size, n)
}

// move is the fallback path: allocate fresh, copy the preserved prefix,
// free the old block. On allocation failure the original pointer is left
// completely untouched.
func (h *Heap) move(ptr, addr, oldBlockSize, n uint32) (uint32, error) {
	q, err := h.Allocate(n)
	if err != nil {
		return 0, err
	}

	oldPayload := oldBlockSize - headerSize - footerSize
	copyLen := n
	if oldPayload < copyLen {
		copyLen = oldPayload
	}
	if copyLen > 0 {
		data, ok := h.mgr.Memory().Read(ptr, copyLen)
		if ok {
			h.mgr.Memory().Write(q, data)
		}
	}

	if err := h.Free(ptr); err != nil {
		return 0, err
	}
	return q, nil
}
