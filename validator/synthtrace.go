package validator

import "math/rand/v2"

// OpKind distinguishes the three trace operations a Validator exposes
// publicly.
type OpKind int

const (
	OpAllocate OpKind = iota
	OpFree
	OpReallocate
)

// Op is one synthetic trace step. Target is an index into the slot set a
// Driver maintains (see RunTrace); it is meaningless for OpAllocate.
type Op struct {
	Kind   OpKind
	Target int
	Size   uint32
}

// GenerateTrace produces a deterministic pseudo-random sequence of n
// allocate/free/reallocate operations for property testing, seeded so
// repeated calls with the same seed reproduce the same trace. Sizes are
// drawn from [1, maxSize]. Grounded on the teacher's buffer-size
// table-driven style (internal/wasm/memory_test.go), extended here to a
// generator instead of a fixed table since the properties under test are
// meant to hold over arbitrary interleavings, not a handful of fixed
// cases. Uses math/rand/v2 because no third-party PRNG appears anywhere
// in the example corpus.
func GenerateTrace(seed uint64, n int, maxSize uint32) []Op {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	ops := make([]Op, 0, n)
	liveSlots := 0
	for i := 0; i < n; i++ {
		size := uint32(rng.IntN(int(maxSize))) + 1

		switch {
		case liveSlots == 0:
			ops = append(ops, Op{Kind: OpAllocate, Size: size})
			liveSlots++
		default:
			switch rng.IntN(3) {
			case 0:
				ops = append(ops, Op{Kind: OpAllocate, Size: size})
				liveSlots++
			case 1:
				ops = append(ops, Op{Kind: OpFree, Target: rng.IntN(liveSlots)})
				liveSlots--
			default:
				ops = append(ops, Op{Kind: OpReallocate, Target: rng.IntN(liveSlots), Size: size})
			}
		}
	}
	return ops
}

// RunTrace replays ops against v, maintaining a slot table that maps each
// trace-local index to its current pointer so OpFree/OpReallocate targets
// stay valid as allocations come and go. It stops and returns the first
// error encountered, whether a Violation or an error propagated from the
// wrapped Allocator.
func RunTrace(v *Validator, ops []Op) error {
	var slots []uint32

	for _, op := range ops {
		switch op.Kind {
		case OpAllocate:
			ptr, err := v.Allocate(op.Size)
			if err != nil {
				return err
			}
			slots = append(slots, ptr)

		case OpFree:
			if op.Target >= len(slots) {
				continue
			}
			ptr := slots[op.Target]
			if err := v.Free(ptr); err != nil {
				return err
			}
			slots = append(slots[:op.Target], slots[op.Target+1:]...)

		case OpReallocate:
			if op.Target >= len(slots) {
				continue
			}
			ptr := slots[op.Target]
			q, err := v.Reallocate(ptr, op.Size)
			if err != nil {
				return err
			}
			slots[op.Target] = q
		}
	}
	return nil
}
