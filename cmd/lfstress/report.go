package main

import (
	"fmt"
	"io"
	"os"

	"github.com/segrock/lfslab/slab"
)

// report prints a size class's counters and runs its consistency check,
// returning a non-nil error if either the scenario itself or the check
// failed.
func report(h *slab.Heap, scenarioErr error) error {
	st := h.Stats()
	printInfo("  allocs=%d frees=%d newSuperBlocks=%d retires=%d casRetries=%d partialPushes=%d partialPops=%d\n",
		st.Allocs, st.Frees, st.NewSuperBlocks, st.Retires, st.CASRetries, st.PartialPushes, st.PartialPops)

	if scenarioErr != nil {
		return fmt.Errorf("scenario failed: %w", scenarioErr)
	}

	var checkOut io.Writer = io.Discard
	if verbose {
		checkOut = os.Stdout
	}
	if err := h.CheckConsistency(checkOut); err != nil {
		return fmt.Errorf("consistency check failed: %w", err)
	}
	printInfo("  consistency check: ok\n")
	return nil
}

func errMismatchf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func newScenarioHeap() (*slab.Heap, error) {
	sc, err := slab.NewSizeClass(slab.DefaultConfig(), uintptr(slotSize))
	if err != nil {
		return nil, fmt.Errorf("creating size class: %w", err)
	}
	return slab.NewHeap(sc), nil
}
