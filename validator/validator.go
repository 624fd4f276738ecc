package validator

import "fmt"

// Allocator is the capability set the Validator consumes as a black box:
// allocate, free, reallocate, and the heap's current bounds. *alloc.Heap
// satisfies this interface; the Validator package does not import alloc
// directly so that it can equally validate a fake or future
// implementation.
type Allocator interface {
	Allocate(n uint32) (uint32, error)
	Free(ptr uint32) error
	Reallocate(ptr uint32, n uint32) (uint32, error)
	Low() uint32
	High() uint32
	ReadAt(ptr, n uint32) ([]byte, error)
	WriteAt(ptr uint32, data []byte) error
}

// live records one outstanding allocation's address and requested size, so
// the Validator can check pairwise disjointness and realloc prefix
// preservation without peeking at allocator-internal block metadata.
type live struct {
	addr uint32
	size uint32
}

// Validator wraps an Allocator and checks, per trace operation, the
// black-box properties it is held to: payload alignment, in-heap
// residency, pairwise disjointness of live allocations, and the realloc
// prefix-preservation law. It does not reach into block headers or free
// lists; anything beyond what the Allocator interface exposes is out of
// scope, since the Validator treats the allocator as a black box.
type Validator struct {
	alloc     Allocator
	alignment uint32
	live      map[uint32]live
}

// New wraps alloc as a Validator. alignment must match the Allocator's own
// configured alignment so pointer alignment can be checked.
func New(alloc Allocator, alignment uint32) *Validator {
	return &Validator{alloc: alloc, alignment: alignment, live: make(map[uint32]live)}
}

// Allocate validates and forwards to the wrapped Allocator.
func (v *Validator) Allocate(n uint32) (uint32, error) {
	ptr, err := v.alloc.Allocate(n)
	if err != nil {
		return 0, err
	}
	if ptr == 0 {
		return 0, nil
	}
	if err := v.checkFreshPointer(ptr, n); err != nil {
		return 0, err
	}
	v.live[ptr] = live{addr: ptr, size: n}
	return ptr, nil
}

// Free forwards to the wrapped Allocator and drops the pointer from the
// live set on success.
func (v *Validator) Free(ptr uint32) error {
	if err := v.alloc.Free(ptr); err != nil {
		return err
	}
	delete(v.live, ptr)
	return nil
}

// Reallocate validates the prefix-preservation law before forwarding: it
// snapshots up to min(old, new) bytes, performs the reallocation, then
// compares. This relies on ReadAt/WriteAt exposing payload bytes, which
// the Validator needs to observe content, not just pointers.
func (v *Validator) Reallocate(ptr uint32, n uint32) (uint32, error) {
	if ptr == 0 {
		return v.Allocate(n)
	}
	if n == 0 {
		return 0, v.Free(ptr)
	}

	old, tracked := v.live[ptr]
	var before []byte
	if tracked {
		copyLen := n
		if old.size < copyLen {
			copyLen = old.size
		}
		if copyLen > 0 {
			b, err := v.alloc.ReadAt(ptr, copyLen)
			if err == nil {
				before = b
			}
		}
	}

	q, err := v.alloc.Reallocate(ptr, n)
	if err != nil {
		return 0, err
	}
	if q == 0 {
		return 0, nil
	}

	if tracked {
		delete(v.live, ptr)
	}

	if err := v.checkFreshPointer(q, n); err != nil {
		return 0, err
	}
	v.live[q] = live{addr: q, size: n}

	if before != nil {
		after, err := v.alloc.ReadAt(q, uint32(len(before)))
		if err != nil {
			return 0, err
		}
		for i := range before {
			if before[i] != after[i] {
				return 0, &Violation{
					Property: PropertyReallocPrefix,
					Address:  q,
					Size:     uint32(len(before)),
					Message:  fmt.Sprintf("byte %d changed across reallocate(%#x -> %#x)", i, ptr, q),
				}
			}
		}
	}

	return q, nil
}

// checkFreshPointer runs alignment, bounds, and overlap checks against a
// newly returned pointer.
func (v *Validator) checkFreshPointer(ptr, n uint32) error {
	if ptr%v.alignment != 0 {
		return &Violation{Property: PropertyAlignment, Address: ptr, Size: n, Message: "payload is not alignment-aligned"}
	}
	if ptr < v.alloc.Low() || uint64(ptr)+uint64(n) > uint64(v.alloc.High()) {
		return &Violation{Property: PropertyBounds, Address: ptr, Size: n, Message: "payload escapes [heap_lo, heap_hi)"}
	}
	for other, l := range v.live {
		if other == ptr {
			continue
		}
		if rangesOverlap(ptr, n, l.addr, l.size) {
			return &Violation{Property: PropertyOverlap, Address: ptr, Size: n, Message: fmt.Sprintf("overlaps live allocation at 0x%x", other)}
		}
	}
	return nil
}

func rangesOverlap(a0, aLen, b0, bLen uint32) bool {
	a1 := a0 + aLen
	b1 := b0 + bLen
	return a0 < b1 && b0 < a1
}

// LiveCount reports the number of allocations the Validator currently
// believes are outstanding. Nothing clears this count when the wrapped
// heap is reset.
func (v *Validator) LiveCount() int { return len(v.live) }
