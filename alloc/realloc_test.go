package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReallocateNullActsAsAllocate(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Reallocate(0, 64)
	require.NoError(t, err)
	assert.NotZero(t, p)
	require.NoError(t, h.CheckInvariants())
}

func TestReallocateZeroSizeActsAsFree(t *testing.T) {
	h := newTestHeap(t, 0)

	a, err := h.Allocate(64)
	require.NoError(t, err)

	p, err := h.Reallocate(a, 0)
	require.NoError(t, err)
	assert.Zero(t, p)

	// A second free of the same address should now fault, confirming the
	// block was actually returned to the free list rather than ignored.
	err = h.Free(a)
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FaultDoubleFree, fe.Kind)
}

func TestReallocateAbsorbsFreeRightNeighbor(t *testing.T) {
	h := newTestHeap(t, 0)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	b, err := h.Allocate(64)
	require.NoError(t, err)
	_, err = h.Allocate(32) // keeps b's right neighbor pinned, not top-of-heap
	require.NoError(t, err)

	require.NoError(t, h.Free(b))

	grown, err := h.Reallocate(a, 32+64)
	require.NoError(t, err)
	assert.Equal(t, a, grown, "absorbing a free right neighbor must not move the block")
	require.NoError(t, h.CheckInvariants())
}

func TestReallocateOnHeapExhaustionLeavesOriginalUntouched(t *testing.T) {
	h := newTestHeap(t, 256)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	payload := []byte{9, 9, 9, 9}
	require.NoError(t, h.WriteAt(a, payload))

	_, err = h.Reallocate(a, 1<<20)
	require.Error(t, err)

	got, err := h.ReadAt(a, uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got, "a failed reallocate must leave the original block untouched")
}

func TestReallocateRejectsCorruptPointer(t *testing.T) {
	h := newTestHeap(t, 0)

	a, err := h.Allocate(32)
	require.NoError(t, err)
	require.NoError(t, h.Free(a))

	_, err = h.Reallocate(a, 64)
	require.Error(t, err)
	var fe *FaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FaultCorruptBoundary, fe.Kind)
}
