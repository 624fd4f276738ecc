package alloc

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/heapkit/heapalloc/heapio"
)

// Heap is the allocator engine: the bin array, heap bounds, and the
// last-block anchor, encapsulated in one value rather than package
// globals so multiple independent heaps can coexist in one process.
// A *Heap is not safe for concurrent use.
type Heap struct {
	mgr *heapio.Manager
	cfg Config
	fl  *freeList
	log *slog.Logger

	origin   uint32 // first address a real block may occupy
	lastAddr uint32 // address of the topmost block; noAddr if heap is empty
}

// Option configures optional Heap behavior.
type Option func(*Heap)

// WithLogger attaches a structured logger used only for CheckInvariants
// diagnostics. The allocator's hot path never logs. A nil logger (the
// default) discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHeap initializes a heap: it validates cfg, reserves a small origin
// padding so address 0 is never a valid payload pointer (letting 0 serve as
// the null sentinel Allocate/Free/Reallocate expect, exactly as real
// allocators leave the zero page unmapped), and returns ready-to-use bins.
// The padding is Alignment minus the header size, so that every payload,
// which starts just past its block's header, lands on an Alignment boundary.
func NewHeap(bp heapio.BreakPointer, cfg Config, opts ...Option) (*Heap, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	mgr := heapio.NewManager(bp)
	origin, err := mgr.Grow(cfg.Alignment - headerSize)
	if err != nil {
		return nil, fmt.Errorf("alloc: reserve null-sentinel origin: %w", err)
	}
	if origin != 0 {
		return nil, fmt.Errorf("alloc: break pointer did not start at address 0")
	}

	h := &Heap{
		mgr:      mgr,
		cfg:      cfg,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		origin:   cfg.Alignment - headerSize,
		lastAddr: noAddr,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.fl = newFreeList(mgr.Memory(), cfg)
	return h, nil
}

// Reset collapses the heap to empty and re-initializes the bin heads.
func (h *Heap) Reset() error {
	if err := h.mgr.Reset(); err != nil {
		return err
	}
	if _, err := h.mgr.Grow(h.origin); err != nil {
		return fmt.Errorf("alloc: reserve null-sentinel origin after reset: %w", err)
	}
	h.fl.reset()
	h.lastAddr = noAddr
	return nil
}

// Low returns the inclusive low address of the heap (past the reserved
// null-sentinel origin).
func (h *Heap) Low() uint32 { return h.origin }

// High returns the exclusive high address of the heap.
func (h *Heap) High() uint32 { return h.mgr.High() }

// ReadAt returns a copy of n bytes of payload starting at ptr. It exists
// for collaborators (the Validator, debug tooling) that need to inspect or
// seed payload content; the allocator core never calls it.
func (h *Heap) ReadAt(ptr, n uint32) ([]byte, error) {
	data, ok := h.mgr.Memory().Read(ptr, n)
	if !ok {
		return nil, &FaultError{Kind: FaultInvalidFree, Addr: ptr, Message: "read out of bounds"}
	}
	return data, nil
}

// WriteAt stores data starting at ptr. See ReadAt.
func (h *Heap) WriteAt(ptr uint32, data []byte) error {
	if !h.mgr.Memory().Write(ptr, data) {
		return &FaultError{Kind: FaultInvalidFree, Addr: ptr, Message: "write out of bounds"}
	}
	return nil
}
