package main

import (
	"sync"
	"sync/atomic"

	"github.com/segrock/lfslab/slab"
	"github.com/spf13/cobra"
)

var (
	abaGoroutines uint
	abaIterations uint
)

func init() {
	cmd := &cobra.Command{
		Use:   "aba",
		Short: "S4: ABA stress across several strided goroutines",
		Long: `Each of several goroutines repeatedly allocates, writes its own
goroutine index shifted into the slot, re-reads and verifies it, then frees.
This is the scenario the anchor's tag field exists to survive: without it,
two goroutines racing to reuse the same freed slot index could defeat a
plain (avail, count, state) compare-and-swap.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runABA()
		},
	}
	cmd.Flags().UintVar(&abaGoroutines, "goroutines", 4, "Number of concurrent goroutines")
	cmd.Flags().UintVar(&abaIterations, "iterations", 200000, "Iterations per goroutine")
	rootCmd.AddCommand(cmd)
}

func runABA() error {
	h, err := newScenarioHeap()
	if err != nil {
		return err
	}

	printInfo("aba: slot-size=%d goroutines=%d iterations=%d\n", slotSize, abaGoroutines, abaIterations)

	var scenarioErr atomic.Pointer[error]
	var wg sync.WaitGroup
	for g := 0; g < int(abaGoroutines); g++ {
		tag := int32(g) << 10
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint(0); i < abaIterations; i++ {
				p, err := h.Alloc()
				if err != nil {
					storeFirstErr(&scenarioErr, err)
					return
				}
				want := tag | int32(i&0x3ff)
				*(*int32)(p) = want
				if got := *(*int32)(p); got != want {
					storeFirstErr(&scenarioErr, errMismatchf("slot %p: wrote %d, read back %d", p, want, got))
					slab.Free(p)
					return
				}
				slab.Free(p)
			}
		}()
	}
	wg.Wait()

	var scenarioErrVal error
	if e := scenarioErr.Load(); e != nil {
		scenarioErrVal = *e
	}
	return report(h, scenarioErrVal)
}
