package alloc

import (
	"encoding/binary"
	"fmt"

	"github.com/heapkit/heapalloc/heapio"
)

// fakeBreakPointer is a plain-slice BreakPointer test double, grounded on
// the teacher's habit of constructing bare zero-value test doubles
// (safety_test.go's `runtime := &Runtime{}`) instead of reaching for a
// mocking framework. It optionally caps total growth to exercise heap
// exhaustion.
type fakeBreakPointer struct {
	data    []byte
	budget  uint32 // 0 means unlimited
	growSum uint32
}

func newFakeBreakPointer(budget uint32) *fakeBreakPointer {
	return &fakeBreakPointer{budget: budget}
}

var _ heapio.BreakPointer = (*fakeBreakPointer)(nil)

func (f *fakeBreakPointer) Grow(n uint32) (uint32, error) {
	if f.budget != 0 && f.growSum+n > f.budget {
		return 0, fmt.Errorf("fake break pointer: %w", heapio.ErrHeapExhausted)
	}
	old := uint32(len(f.data))
	f.data = append(f.data, make([]byte, n)...)
	f.growSum += n
	return old, nil
}

func (f *fakeBreakPointer) Low() uint32  { return 0 }
func (f *fakeBreakPointer) High() uint32 { return uint32(len(f.data)) }

func (f *fakeBreakPointer) Reset() error {
	f.data = f.data[:0]
	f.growSum = 0
	return nil
}

func (f *fakeBreakPointer) Size() uint32 { return uint32(len(f.data)) }

func (f *fakeBreakPointer) Read(off, count uint32) ([]byte, bool) {
	if off+count > uint32(len(f.data)) {
		return nil, false
	}
	out := make([]byte, count)
	copy(out, f.data[off:off+count])
	return out, true
}

func (f *fakeBreakPointer) Write(off uint32, data []byte) bool {
	if off+uint32(len(data)) > uint32(len(f.data)) {
		return false
	}
	copy(f.data[off:], data)
	return true
}

func (f *fakeBreakPointer) ReadUint32(off uint32) (uint32, bool) {
	if off+4 > uint32(len(f.data)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(f.data[off : off+4]), true
}

func (f *fakeBreakPointer) WriteUint32(off uint32, v uint32) bool {
	if off+4 > uint32(len(f.data)) {
		return false
	}
	binary.LittleEndian.PutUint32(f.data[off:off+4], v)
	return true
}
