package main

import (
	"sync"
	"unsafe"

	"github.com/segrock/lfslab/slab"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "newsb-race",
		Short: "S5: two goroutines racing to build the first super-block",
		Long: `Starts from a fresh heap (active=nil, partial queue empty) and has two
goroutines call Alloc concurrently so both are likely to attempt
allocFromNewSB at once. Exactly one super-block's descriptor should end up
installed as active; the loser's descriptor is retired and its caller
retries, landing its allocation on the winner's super-block instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewSBRace()
		},
	}
	rootCmd.AddCommand(cmd)
}

func runNewSBRace() error {
	h, err := newScenarioHeap()
	if err != nil {
		return err
	}

	printInfo("newsb-race: slot-size=%d\n", slotSize)

	var wg sync.WaitGroup
	ptrs := make([]allocResult, 2)
	for i := range ptrs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := h.Alloc()
			ptrs[i] = allocResult{p: p, err: err}
		}(i)
	}
	wg.Wait()

	scenarioErr := func() error {
		for _, r := range ptrs {
			if r.err != nil {
				return r.err
			}
		}
		if slab.DescriptorForAddr(ptrs[0].p) != slab.DescriptorForAddr(ptrs[1].p) {
			return errMismatchf("the two racing allocations landed on different super-blocks")
		}
		return nil
	}()

	for _, r := range ptrs {
		if r.p != nil {
			slab.Free(r.p)
		}
	}

	return report(h, scenarioErr)
}

type allocResult struct {
	p   unsafe.Pointer
	err error
}
