package slab

import "sync/atomic"

// Heap is a single caller's allocation endpoint bound to one SizeClass.
// Its active slot is a one-descriptor, single-reader hand-off: only the
// goroutine that wins the CAS swapping active to nil may mutate that
// descriptor's anchor on the allocation path.
type Heap struct {
	sc     *SizeClass
	active atomic.Pointer[Descriptor]
}

// NewHeap binds a fresh Heap to sc. Multiple heaps may share one SizeClass;
// each gets its own active slot, but all of them contend on sc's single
// partial queue.
func NewHeap(sc *SizeClass) *Heap {
	return &Heap{sc: sc}
}

// SizeClass returns the size class h is bound to.
func (h *Heap) SizeClass() *SizeClass { return h.sc }

// Stats returns a snapshot of h's size class's counters.
func (h *Heap) Stats() Stats { return h.sc.Stats() }
