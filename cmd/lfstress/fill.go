package main

import (
	"unsafe"

	"github.com/segrock/lfslab/slab"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "S2: fill exactly one super-block, then spill into a second",
		Long: `Allocates MaxCount slots (filling a single super-block), confirms every
address is distinct and owned by the same descriptor, allocates one more to
confirm it comes from a second super-block, then frees everything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFill()
		},
	}
	rootCmd.AddCommand(cmd)
}

func runFill() error {
	h, err := newScenarioHeap()
	if err != nil {
		return err
	}
	sc := h.SizeClass()
	maxCount := int(sc.MaxCount())

	printInfo("fill: slot-size=%d max-count=%d\n", slotSize, maxCount)

	ptrs := make([]unsafe.Pointer, 0, maxCount+1)
	seen := make(map[unsafe.Pointer]bool, maxCount)

	scenarioErr := func() error {
		for i := 0; i < maxCount; i++ {
			p, err := h.Alloc()
			if err != nil {
				return err
			}
			if seen[p] {
				return errMismatchf("slot %p allocated twice while filling the first super-block", p)
			}
			seen[p] = true
			ptrs = append(ptrs, p)
		}

		d0 := slab.DescriptorForAddr(ptrs[0])
		for _, p := range ptrs[1:] {
			if slab.DescriptorForAddr(p) != d0 {
				return errMismatchf("slot %p belongs to a different super-block before the first one filled", p)
			}
		}

		overflow, err := h.Alloc()
		if err != nil {
			return err
		}
		ptrs = append(ptrs, overflow)
		if slab.DescriptorForAddr(overflow) == d0 {
			return errMismatchf("overflow slot %p came from the already-full first super-block", overflow)
		}
		printVerbose("  overflow slot %p correctly landed on a second super-block\n", overflow)
		return nil
	}()

	for _, p := range ptrs {
		slab.Free(p)
	}

	return report(h, scenarioErr)
}
