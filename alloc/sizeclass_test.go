package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinOf(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		size uint32
		want int
	}{
		{"below min class clamps to 0", 1, 0},
		{"exactly 2^MinPow", 1 << 4, 0},
		{"just under next boundary", 1<<5 - 1, 0},
		{"exactly next boundary moves up a bin", 1 << 5, 1},
		{"mid-range size", 1 << 12, 8},
		{"far past MaxPow clamps to last bin", 1 << 30, cfg.NumBins() - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, binOf(tt.size, cfg))
		})
	}
}

// TestBinOfMonotonicAndResidency exercises the two properties binOf must
// hold regardless of its exact formula: monotonic non-decrease, and every
// size placed in bin i is at least 2^(i+MinPow). Checked here from
// minBlockSize upward, since no block smaller than that is ever handed to
// binOf in practice.
func TestBinOfMonotonicAndResidency(t *testing.T) {
	cfg := DefaultConfig()

	prev := -1
	for size := uint32(minBlockSize); size < 1<<20; size += 37 {
		bin := binOf(size, cfg)
		assert.GreaterOrEqual(t, bin, prev, "binOf must be monotonically non-decreasing")
		assert.LessOrEqual(t, uint32(1<<uint(bin+cfg.MinPow)), size, "size must be >= 2^(bin+MinPow)")
		prev = bin
	}
}
