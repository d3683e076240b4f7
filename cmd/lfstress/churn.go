package main

import (
	"github.com/segrock/lfslab/slab"
	"github.com/spf13/cobra"
)

var churnIterations uint

func init() {
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "S1: single-thread alloc/write/read/free churn",
		Long: `Loops alloc/write/verify/free on one Heap with no concurrency. Expects
the heap to end up with no partial descriptors and active=nil.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChurn()
		},
	}
	cmd.Flags().UintVar(&churnIterations, "iterations", 10000, "Number of alloc/free cycles")
	rootCmd.AddCommand(cmd)
}

func runChurn() error {
	h, err := newScenarioHeap()
	if err != nil {
		return err
	}

	printInfo("churn: slot-size=%d iterations=%d\n", slotSize, churnIterations)

	var scenarioErr error
	for i := 0; i < int(churnIterations); i++ {
		p, err := h.Alloc()
		if err != nil {
			scenarioErr = err
			break
		}
		*(*int32)(p) = int32(i)
		if got := *(*int32)(p); got != int32(i) {
			scenarioErr = errMismatchf("slot wrote %d, read back %d", i, got)
			break
		}
		slab.Free(p)
	}

	return report(h, scenarioErr)
}
