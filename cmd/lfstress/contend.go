package main

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/segrock/lfslab/slab"
	"github.com/spf13/cobra"
)

var (
	contendGoroutines uint
	contendIterations uint
	contendNumEntries uint
)

func init() {
	cmd := &cobra.Command{
		Use:   "contend",
		Short: "S3: goroutines racing to alloc/free a shared slot array",
		Long: `Each goroutine walks a shared array of atomic slot pointers with a
coprime stride; at each position it swaps in an alloc if the slot was nil,
or frees and clears it if the slot was occupied. At the end every remaining
published slot is drained and a consistency check is run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContend()
		},
	}
	cmd.Flags().UintVar(&contendGoroutines, "goroutines", 2, "Number of concurrent goroutines")
	cmd.Flags().UintVar(&contendIterations, "iterations", 200000, "Iterations per goroutine")
	cmd.Flags().UintVar(&contendNumEntries, "entries", 1024, "Size of the shared slot array")
	rootCmd.AddCommand(cmd)
}

// coprimeStrides returns the first n strides from the classic odd-stride
// sequence (1, 3, 5, 7, ...), which are pairwise coprime with a
// power-of-two-sized array and with each other.
func coprimeStrides(n int) []uint64 {
	strides := make([]uint64, n)
	for i := range strides {
		strides[i] = uint64(2*i + 1)
	}
	return strides
}

func runContend() error {
	h, err := newScenarioHeap()
	if err != nil {
		return err
	}

	printInfo("contend: slot-size=%d goroutines=%d iterations=%d entries=%d\n",
		slotSize, contendGoroutines, contendIterations, contendNumEntries)

	slots := make([]atomic.Pointer[byte], contendNumEntries)
	strides := coprimeStrides(int(contendGoroutines))

	var scenarioErr atomic.Pointer[error]
	var wg sync.WaitGroup
	for g := 0; g < int(contendGoroutines); g++ {
		stride := strides[g]
		wg.Add(1)
		go func() {
			defer wg.Done()
			pos := uint64(0)
			for i := uint64(0); i < uint64(contendIterations); i++ {
				idx := pos % uint64(len(slots))
				pos += stride

				slot := &slots[idx]
				cur := slot.Load()
				if cur == nil {
					p, err := h.Alloc()
					if err != nil {
						storeFirstErr(&scenarioErr, err)
						return
					}
					// A peer may have published between our Load and this
					// CAS; losing the race just means our fresh slot goes
					// straight back to the allocator instead of the array.
					if !slot.CompareAndSwap(nil, (*byte)(p)) {
						slab.Free(p)
					}
					continue
				}
				if slot.CompareAndSwap(cur, nil) {
					slab.Free(unsafe.Pointer(cur))
				}
			}
		}()
	}
	wg.Wait()

	for i := range slots {
		if p := slots[i].Swap(nil); p != nil {
			slab.Free(unsafe.Pointer(p))
		}
	}

	var scenarioErrVal error
	if e := scenarioErr.Load(); e != nil {
		scenarioErrVal = *e
	}
	return report(h, scenarioErrVal)
}

func storeFirstErr(dst *atomic.Pointer[error], err error) {
	dst.CompareAndSwap(nil, &err)
}
