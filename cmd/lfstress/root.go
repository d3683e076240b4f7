package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	slotSize uint
)

var rootCmd = &cobra.Command{
	Use:   "lfstress",
	Short: "Run concurrency stress scenarios against the lfslab allocator",
	Long: `lfstress drives the lock-free slab allocator through the end-to-end
scenarios described in its design: single-thread churn, super-block fill,
multi-goroutine interleaved alloc/free, ABA stress, and new-super-block
races. Each subcommand ends by running a consistency check and reports
pass/fail plus the size class's counters.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().
		UintVar(&slotSize, "slot-size", 64, "Slot size in bytes for the size class under test")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}
