//go:build lfslab_debug

package slab

import "sync/atomic"

// debugFlag backs Descriptor.inUse: a debug-only assertion aid, not a
// synchronization primitive, and never consulted by the non-debug
// allocation/free path. It only exists as real state in lfslab_debug
// builds. It's made atomic anyway since Go offers no single-threaded
// execution guarantee to lean on instead.
type debugFlag struct{ v atomic.Bool }

func (f *debugFlag) set(v bool) { f.v.Store(v) }
func (f *debugFlag) get() bool  { return f.v.Load() }
