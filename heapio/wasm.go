package heapio

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is the WASM linear-memory page granularity (64KiB), fixed by
// the spec of the WASM memory instruction set.
const wasmPageSize = 65536

// WasmBreakPointer fronts a wazero-hosted WASM module's linear memory as a
// BreakPointer. A WASM module's memory is a textbook one-way-growing
// break-pointer region: api.Memory.Grow only ever moves the boundary up,
// newly grown pages are zero-filled, and reads or writes past the current
// size fail instead of racing off the end of a Go slice: exactly the
// guarantees the Heap Region Manager needs from its host.
//
// Growth underneath is page-granular (wazero cannot grow by less than one
// 64KiB page), so WasmBreakPointer tracks its own byte-exact committed
// high-water mark separately from the page-rounded backing capacity and
// only ever exposes the former through High().
type WasmBreakPointer struct {
	ctx      context.Context
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	mod      api.Module
	mem      api.Memory

	committed uint32
}

// NewWasmBreakPointer compiles and instantiates a tiny host module whose
// only purpose is exporting a linear memory, then wraps it as a
// BreakPointer. maxPages bounds how far the backing memory may ever grow
// (wazero requires an upper bound up front); 0 means wazero's default
// maximum (the WASM32 address space ceiling).
func NewWasmBreakPointer(ctx context.Context, maxPages uint32) (*WasmBreakPointer, error) {
	cfg := wazero.NewRuntimeConfig()
	if maxPages > 0 {
		cfg = cfg.WithMemoryLimitPages(maxPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, minimalMemoryModule())
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("heapio: compile break-pointer host module: %w", err)
	}

	wbp := &WasmBreakPointer{ctx: ctx, runtime: rt, compiled: compiled}
	if err := wbp.instantiate(); err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return wbp, nil
}

func (w *WasmBreakPointer) instantiate() error {
	mod, err := w.runtime.InstantiateModule(w.ctx, w.compiled, wazero.NewModuleConfig().WithName("heap"))
	if err != nil {
		return fmt.Errorf("heapio: instantiate break-pointer host module: %w", err)
	}
	w.mod = mod
	w.mem = mod.Memory()
	w.committed = 0
	return nil
}

// Grow implements BreakPointer.
func (w *WasmBreakPointer) Grow(n uint32) (uint32, error) {
	old := w.committed
	need := old + n
	if backing := w.mem.Size(); need > backing {
		deltaPages := (need - backing + wasmPageSize - 1) / wasmPageSize
		if _, ok := w.mem.Grow(deltaPages); !ok {
			return 0, fmt.Errorf("heapio: grow wasm memory by %d pages: %w", deltaPages, ErrHeapExhausted)
		}
	}
	w.committed = need
	return old, nil
}

// Low implements BreakPointer. The backing module's linear memory starts at
// offset 0 and there is no reserved region below it; callers that want to
// keep address 0 free as a conventional "null" sentinel reserve it
// themselves via an initial Grow, which is exactly what alloc.NewHeap does.
func (w *WasmBreakPointer) Low() uint32 { return 0 }

// High implements BreakPointer.
func (w *WasmBreakPointer) High() uint32 { return w.committed }

// Reset implements BreakPointer by discarding the module instance and
// re-instantiating it, which hands back a fresh, empty linear memory.
func (w *WasmBreakPointer) Reset() error {
	if err := w.mod.Close(w.ctx); err != nil {
		return fmt.Errorf("heapio: close break-pointer module instance: %w", err)
	}
	return w.instantiate()
}

// Size implements Memory.
func (w *WasmBreakPointer) Size() uint32 { return w.committed }

// Read implements Memory.
func (w *WasmBreakPointer) Read(off, count uint32) ([]byte, bool) {
	if off+count > w.committed {
		return nil, false
	}
	view, ok := w.mem.Read(off, count)
	if !ok {
		return nil, false
	}
	out := make([]byte, count)
	copy(out, view)
	return out, true
}

// Write implements Memory.
func (w *WasmBreakPointer) Write(off uint32, data []byte) bool {
	if off+uint32(len(data)) > w.committed {
		return false
	}
	return w.mem.Write(off, data)
}

// ReadUint32 implements Memory.
func (w *WasmBreakPointer) ReadUint32(off uint32) (uint32, bool) {
	if off+4 > w.committed {
		return 0, false
	}
	return w.mem.ReadUint32Le(off)
}

// WriteUint32 implements Memory.
func (w *WasmBreakPointer) WriteUint32(off uint32, v uint32) bool {
	if off+4 > w.committed {
		return false
	}
	return w.mem.WriteUint32Le(off, v)
}

// Close releases the wazero runtime and everything compiled against it.
func (w *WasmBreakPointer) Close() error {
	return w.runtime.Close(w.ctx)
}

// minimalMemoryModule hand-assembles the smallest valid WASM binary that
// exports a linear memory and nothing else: magic + version, a memory
// section declaring one memory with no declared minimum, and an export
// section naming it "memory". No guest toolchain is involved; this is the
// WASM equivalent of `(module (memory (export "memory") 0))`, written out
// byte by byte.
func minimalMemoryModule() []byte {
	module := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00} // "\0asm", version 1

	memorySection := []byte{
		0x01,       // one memory entry
		0x00,       // limits: flags=0 (min only)
		0x00,       // min pages = 0
	}
	module = append(module, section(5, memorySection)...)

	exportSection := []byte{
		0x01,                                    // one export
		0x06,                                    // name length
		'm', 'e', 'm', 'o', 'r', 'y',             // name
		0x02, // export kind = memory
		0x00, // memory index 0
	}
	module = append(module, section(7, exportSection)...)

	return module
}

func section(id byte, content []byte) []byte {
	return append([]byte{id, byte(len(content))}, content...)
}
