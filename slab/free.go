package slab

import (
	"fmt"
	"unsafe"
)

// Free returns a previously allocated slot to its owning descriptor,
// recovered from the super-block header — no SizeClass or Heap handle is
// needed. Behavior is undefined if p was not returned by this allocator
// or has already been freed.
func Free(p unsafe.Pointer) {
	d := descriptorForAddr(p, currentSBSize())
	if d == nil {
		panic(fmt.Errorf("%w: %p not owned by any live super-block", ErrDoubleFree, p))
	}

	newState, prevState := freeStep(d, p)
	d.heap.sc.stats.frees.Add(1)

	switch {
	case newState == stateEmpty:
		h := d.heap
		if h.active.CompareAndSwap(d, nil) {
			h.sc.retire(d)
			return
		}
		h.sc.listRemoveEmptyDesc()
	case prevState == stateFull:
		h := d.heap
		if h.active.CompareAndSwap(nil, d) {
			return
		}
		h.sc.pushPartial(d)
	}
}

// freeStep executes the anchor free step for the slot at p against
// descriptor d, returning the resulting and the pre-CAS states.
func freeStep(d *Descriptor, p unsafe.Pointer) (newState, prevState sbState) {
	idx, ok := slotIndexForAddr(d, p)
	if !ok {
		panic(fmt.Errorf("%w: %p misaligned or out of range for its super-block", ErrDoubleFree, p))
	}

	for {
		a := d.loadAnchor()
		storeSlotNext(d, idx, a.avail)

		a2 := anchor{avail: idx, count: a.count + 1, tag: a.tag + 1, state: a.state}
		if a.state == stateFull {
			a2.state = statePartial
		}
		// This check is independent of (and must run after) the one above:
		// a single free can take a FULL descriptor straight to EMPTY when
		// max_count = 1, where there is no PARTIAL state in between.
		if a2.count == d.maxCount {
			a2.state = stateEmpty
		}

		if d.casAnchor(a, a2) {
			return a2.state, a.state
		}
	}
}
