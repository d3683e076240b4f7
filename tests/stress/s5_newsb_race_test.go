package stress

import (
	"bytes"
	"sync"
	"testing"
	"unsafe"

	"github.com/segrock/lfslab/slab"
)

// TestNewSuperBlockRaceExactlyOneWinner is scenario S5: two goroutines
// call Alloc on a brand new heap at the same instant, so both necessarily
// observe active == nil and an empty partial queue and both race through
// allocFromNewSB. Exactly one of them must end up as the heap's active
// descriptor; the loser's super-block must have been released rather than
// leaked.
func TestNewSuperBlockRaceExactlyOneWinner(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		h := newHeap(t, 64)

		type result struct {
			p   unsafe.Pointer
			err error
		}
		results := make([]result, 2)

		var ready, start sync.WaitGroup
		ready.Add(2)
		start.Add(1)

		var wg sync.WaitGroup
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				ready.Done()
				start.Wait()
				p, err := h.Alloc()
				results[idx] = result{p: p, err: err}
			}(g)
		}
		ready.Wait()
		start.Done()
		wg.Wait()

		for _, r := range results {
			if r.err != nil {
				t.Fatalf("trial %d: Alloc failed: %v", trial, r.err)
			}
		}

		d0 := slab.DescriptorForAddr(results[0].p)
		d1 := slab.DescriptorForAddr(results[1].p)
		if d0 != d1 {
			t.Fatalf("trial %d: the two allocations landed on different super-blocks; exactly one new-SB race should have won", trial)
		}

		slab.Free(results[0].p)
		slab.Free(results[1].p)

		var buf bytes.Buffer
		if err := h.CheckConsistency(&buf); err != nil {
			t.Fatalf("trial %d: CheckConsistency: %v\n%s", trial, err, buf.String())
		}

		st := h.SizeClass().Stats()
		if st.NewSuperBlocks != st.Retires {
			t.Fatalf("trial %d: expected the loser's super-block released, got %d new, %d retired", trial, st.NewSuperBlocks, st.Retires)
		}
	}
}
