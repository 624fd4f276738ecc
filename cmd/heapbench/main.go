// Command heapbench replays an allocation trace through the allocator,
// validating every call against the contract package validator checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/heapkit/heapalloc/alloc"
	"github.com/heapkit/heapalloc/heapio"
	"github.com/heapkit/heapalloc/validator"
)

var (
	alignment uint32
	minPow    int
	maxPow    int
	backend   string
	tracePath string
	budget    uint32
	synth     int
	synthSeed uint64
	synthMax  uint32
)

var rootCmd = &cobra.Command{
	Use:     "heapbench",
	Short:   "Replay allocate/free/reallocate traces through the boundary-tag allocator",
	Version: "0.1.0",
	RunE:    run,
}

func init() {
	rootCmd.PersistentFlags().Uint32Var(&alignment, "alignment", 8, "payload alignment in bytes")
	rootCmd.PersistentFlags().IntVar(&minPow, "min-pow", 4, "lower size-class exponent bound")
	rootCmd.PersistentFlags().IntVar(&maxPow, "max-pow", 28, "upper size-class exponent bound")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "mmap", "break-pointer backend: mmap|wasm")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "path to a line-oriented trace file (a <id> <size> | f <id> | r <id> <size>)")
	rootCmd.PersistentFlags().Uint32Var(&budget, "budget", 0, "cap total heap growth in bytes (0 = unbounded)")
	rootCmd.PersistentFlags().IntVar(&synth, "synth", 0, "generate and replay N synthetic operations instead of --trace")
	rootCmd.PersistentFlags().Uint64Var(&synthSeed, "synth-seed", 1, "seed for --synth trace generation")
	rootCmd.PersistentFlags().Uint32Var(&synthMax, "synth-max-size", 4096, "maximum request size for --synth trace generation")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if tracePath == "" && synth == 0 {
		return fmt.Errorf("heapbench: one of --trace or --synth is required")
	}

	cfg := alloc.Config{Alignment: alignment, MinPow: minPow, MaxPow: maxPow, ShrinkMinSize: alloc.DefaultConfig().ShrinkMinSize}

	bp, closeBP, err := newBackend(context.Background(), backend, budget)
	if err != nil {
		return err
	}
	defer closeBP()

	h, err := alloc.NewHeap(bp, cfg, alloc.WithLogger(log))
	if err != nil {
		return fmt.Errorf("heapbench: init: %w", err)
	}
	v := validator.New(h, cfg.Alignment)

	var ops []validator.Op
	if synth > 0 {
		ops = validator.GenerateTrace(synthSeed, synth, synthMax)
		log.Info("generated synthetic trace", "ops", len(ops), "seed", synthSeed)
	} else {
		ops, err = loadTrace(tracePath)
		if err != nil {
			return fmt.Errorf("heapbench: %w", err)
		}
		log.Info("loaded trace", "path", tracePath, "ops", len(ops))
	}

	if err := validator.RunTrace(v, ops); err != nil {
		var fault *alloc.FaultError
		if errors.As(err, &fault) {
			log.Error("fatal allocator fault", "kind", fault.Kind.String(), "addr", fault.Addr, "message", fault.Message)
			os.Exit(1)
		}
		return fmt.Errorf("heapbench: trace replay: %w", err)
	}

	if err := h.CheckInvariants(); err != nil {
		return fmt.Errorf("heapbench: post-run invariant check: %w", err)
	}

	log.Info("trace replayed cleanly", "live", v.LiveCount(), "heap_lo", h.Low(), "heap_hi", h.High())
	return nil
}

func newBackend(ctx context.Context, name string, budget uint32) (heapio.BreakPointer, func(), error) {
	switch name {
	case "wasm":
		maxPages := uint32(0)
		if budget > 0 {
			maxPages = (budget + 65535) / 65536
		}
		bp, err := heapio.NewWasmBreakPointer(ctx, maxPages)
		if err != nil {
			return nil, nil, fmt.Errorf("heapbench: wasm backend: %w", err)
		}
		return bp, func() { _ = bp.Close() }, nil
	case "mmap":
		reserve := budget
		if reserve == 0 {
			reserve = 1 << 30
		}
		bp, err := heapio.NewMMapBreakPointer(reserve)
		if err != nil {
			return nil, nil, fmt.Errorf("heapbench: mmap backend: %w", err)
		}
		return bp, func() { _ = bp.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("heapbench: unknown --backend %q", name)
	}
}
