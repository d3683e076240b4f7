// Package stress drives the allocator end to end through its exported
// surface only, the way a real caller would, covering interleavings that
// a single-threaded property test can't reach. One file per scenario,
// mirroring how the scenarios are split across cmd/lfstress subcommands.
package stress

import (
	"sync/atomic"
	"testing"

	"github.com/segrock/lfslab/slab"
)

func newHeap(t *testing.T, slotSize uintptr) *slab.Heap {
	t.Helper()
	sc, err := slab.NewSizeClass(slab.DefaultConfig(), slotSize)
	if err != nil {
		t.Fatalf("NewSizeClass: %v", err)
	}
	return slab.NewHeap(sc)
}

func storeFirstErr(dst *atomic.Pointer[error], err error) {
	dst.CompareAndSwap(nil, &err)
}

// coprimeStrides returns the first n entries of the odd-stride sequence
// (1, 3, 5, ...), pairwise coprime with a power-of-two-sized array and
// with each other.
func coprimeStrides(n int) []uint64 {
	strides := make([]uint64, n)
	for i := range strides {
		strides[i] = uint64(2*i + 1)
	}
	return strides
}

// scaledIterations shrinks n under -short, without dropping the scenario
// entirely.
func scaledIterations(t *testing.T, n int) int {
	if testing.Short() {
		return n / 50
	}
	return n
}
