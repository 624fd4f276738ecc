package alloc

import "github.com/heapkit/heapalloc/heapio"

// Block layout (boundary-tag variant):
//
//	addr .......... headerWord (4 bytes: size | free-bit)
//	addr+4 ........ payload (or, while free, next link then prev link)
//	addr+size-4 .... footerWord (4 bytes: size | free-bit), mirrors header
//
// size is always a multiple of Config.Alignment (>= 8), so its low bit is
// always zero and can carry the free flag without an extra word.
const (
	headerSize = 4
	footerSize = 4
	linkSize   = 4 // one free-list link (next or prev)

	// minBlockSize is the smallest block that can hold a header, footer,
	// and both free-list links at once.
	minBlockSize = headerSize + 2*linkSize + footerSize

	// minPayload is the smallest payload a request is rounded up to, so
	// that a block can always be parked on a free list later.
	minPayload = 2 * linkSize
)

const noAddr = ^uint32(0)

func alignUp(n, alignment uint32) uint32 {
	return (n + alignment - 1) &^ (alignment - 1)
}

func packWord(size uint32, free bool) uint32 {
	w := size &^ 1
	if free {
		w |= 1
	}
	return w
}

func unpackWord(w uint32) (size uint32, free bool) {
	return w &^ 1, w&1 != 0
}

// readHeader reads the header word at addr.
func readHeader(mem heapio.Memory, addr uint32) (size uint32, free bool, ok bool) {
	w, ok := mem.ReadUint32(addr)
	if !ok {
		return 0, false, false
	}
	size, free = unpackWord(w)
	return size, free, true
}

// readWordAt reads a raw packed word at an arbitrary offset. Used to read
// a neighbor's boundary tag without knowing in advance whose header or
// footer it is.
func readWordAt(mem heapio.Memory, at uint32) (size uint32, free bool, ok bool) {
	return readHeader(mem, at)
}

// writeHeaderFooter stamps both boundary tags of a size-byte block
// starting at addr with the same (size, free) pair.
func writeHeaderFooter(mem heapio.Memory, addr, size uint32, free bool) bool {
	w := packWord(size, free)
	if !mem.WriteUint32(addr, w) {
		return false
	}
	return mem.WriteUint32(addr+size-footerSize, w)
}

// footerAddr returns the address of a block's own footer word.
func footerAddr(addr, size uint32) uint32 {
	return addr + size - footerSize
}

// rightAddr returns the address immediately following a size-byte block
// starting at addr: the address of its right neighbor, if any.
func rightAddr(addr, size uint32) uint32 {
	return addr + size
}

// linksAddr returns the addresses of a free block's next and prev links,
// which overlay the first linkSize*2 bytes of its payload.
func linksAddr(addr uint32) (next, prev uint32) {
	return addr + headerSize, addr + headerSize + linkSize
}

func readLink(mem heapio.Memory, at uint32) uint32 {
	v, ok := mem.ReadUint32(at)
	if !ok {
		return noAddr
	}
	return v
}

func writeLink(mem heapio.Memory, at, v uint32) {
	mem.WriteUint32(at, v)
}
