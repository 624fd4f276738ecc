package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeListPushKeepsBinSortedAscending(t *testing.T) {
	h := newTestHeap(t, 0)
	mem := h.mgr.Memory()
	cfg := h.cfg

	sizes := []uint32{120, 72, 96, 64}
	var addrs []uint32
	for _, s := range sizes {
		p, err := h.Allocate(s - headerSize - footerSize)
		require.NoError(t, err)
		addrs = append(addrs, p-headerSize)
		// keep a live block after each one so the frees below cannot coalesce.
		_, err = h.Allocate(8)
		require.NoError(t, err)
	}
	for _, a := range addrs {
		require.NoError(t, h.Free(a+headerSize))
	}

	// All four freed blocks land in the same bin ([64, 128) with the
	// default MinPow of 4); walk the bin that holds the smallest block and
	// confirm ascending order there.
	smallest := addrs[len(addrs)-1] // size 64, freed last
	size, _, ok := readHeader(mem, smallest)
	require.True(t, ok)
	bin := binOf(size, cfg)

	cur := h.fl.heads[bin]
	prevSize := uint32(0)
	count := 0
	for cur != noAddr {
		curSize, free, ok := readHeader(mem, cur)
		require.True(t, ok)
		assert.True(t, free)
		assert.GreaterOrEqual(t, curSize, prevSize)
		prevSize = curSize
		cur = h.fl.next(cur)
		count++
	}
	assert.Greater(t, count, 0)
}

func TestFreeListExtractUnlinksWithoutTouchingNeighbors(t *testing.T) {
	h := newTestHeap(t, 0)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	b, err := h.Allocate(32)
	require.NoError(t, err)
	c, err := h.Allocate(32)
	require.NoError(t, err)
	// keep a 4th live so the freed run a/b/c is not the top of the heap.
	_, err = h.Allocate(8)
	require.NoError(t, err)

	require.NoError(t, h.Free(a))
	require.NoError(t, h.Free(b))
	require.NoError(t, h.Free(c))
	require.NoError(t, h.CheckInvariants())

	// The three frees coalesce a, b, c into one free block. Re-allocate the
	// same size three times; each call splits the free block and should
	// come back as one of a, b, c, confirming extract and push kept the
	// bins consistent each time.
	seen := map[uint32]bool{}
	for i := 0; i < 3; i++ {
		p, err := h.Allocate(32)
		require.NoError(t, err)
		seen[p] = true
	}
	assert.True(t, seen[a])
	assert.True(t, seen[b])
	assert.True(t, seen[c])
}

func TestFreeListPullFitMarksBlockInUse(t *testing.T) {
	h := newTestHeap(t, 0)
	mem := h.mgr.Memory()

	a, err := h.Allocate(64)
	require.NoError(t, err)
	addr := a - headerSize
	size, _, _ := readHeader(mem, addr)
	require.NoError(t, h.Free(a))

	got, gotSize, ok := h.fl.pullFit(size, binOf(size, h.cfg))
	require.True(t, ok)
	assert.Equal(t, addr, got)
	assert.Equal(t, size, gotSize)

	_, free, ok := readHeader(mem, addr)
	require.True(t, ok)
	assert.False(t, free, "pullFit must mark the block in-use itself")
}
