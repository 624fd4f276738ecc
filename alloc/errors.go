package alloc

import (
	"fmt"

	"github.com/heapkit/heapalloc/heapio"
)

// ErrHeapExhausted is the recoverable runtime error: the backing
// BreakPointer could not satisfy a grow, surfaced from Allocate/Reallocate
// as (0, ErrHeapExhausted) with no state mutated. errors.Is unwraps through
// heapio's backend-specific wrapping to this sentinel.
var ErrHeapExhausted = heapio.ErrHeapExhausted

// FaultKind distinguishes fatal precondition violations. These indicate a
// caller or memory-safety bug, never a recoverable runtime condition.
type FaultKind int

const (
	// FaultInvalidFree: the pointer is not in-heap, or not a payload
	// address this Heap ever handed out.
	FaultInvalidFree FaultKind = iota
	// FaultDoubleFree: the block is already on a free list.
	FaultDoubleFree
	// FaultCorruptBoundary: header and footer disagree.
	FaultCorruptBoundary
)

func (k FaultKind) String() string {
	switch k {
	case FaultInvalidFree:
		return "invalid_free"
	case FaultDoubleFree:
		return "double_free"
	case FaultCorruptBoundary:
		return "corrupt_boundary"
	default:
		return "unknown_fault"
	}
}

// FaultError reports a fatal precondition violation: a caller bug that
// calls for aborting the operation, not retrying it. It is returned as a
// typed error the caller must not ignore, rather than a panic, so that a
// Validator can observe and report the violation instead of crashing its
// own process.
type FaultError struct {
	Kind    FaultKind
	Addr    uint32
	Message string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("alloc: %s at 0x%x: %s", e.Kind, e.Addr, e.Message)
}
