package slab

import (
	"fmt"
	"unsafe"
)

// Alloc returns a pointer to SlotSize uninitialized bytes, retrying
// internally until a slot is produced or the OS memory provider is
// exhausted. It never returns a nil pointer together with a nil error.
func (h *Heap) Alloc() (unsafe.Pointer, error) {
	for {
		if p, ok, err := h.tryActive(); err != nil {
			return nil, err
		} else if ok {
			return p, nil
		}

		if p, ok, err := h.tryPartial(); err != nil {
			return nil, err
		} else if ok {
			return p, nil
		}

		p, err := h.allocFromNewSB()
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		// Lost the new-SB race: some other goroutine installed its own
		// fresh descriptor as active first. Loop and retry from the top.
	}
}

// tryActive swaps the active slot to nil and, if it held a descriptor,
// runs the allocation step on it privately.
func (h *Heap) tryActive() (unsafe.Pointer, bool, error) {
	d := h.active.Load()
	if d == nil {
		return nil, false, nil
	}
	if !h.active.CompareAndSwap(d, nil) {
		return nil, false, nil
	}
	return h.allocFromOwned(d)
}

// tryPartial pops from the size class's partial queue and treats the
// result exactly like a freshly swapped active descriptor.
func (h *Heap) tryPartial() (unsafe.Pointer, bool, error) {
	n := h.sc.partial.Pop()
	if n == nil {
		return nil, false, nil
	}
	h.sc.stats.partialPops.Add(1)
	return h.allocFromOwned(descriptorFromNode(n))
}

// allocFromOwned runs the anchor allocation step on a descriptor the
// caller privately holds, and disposes of it per the resulting state:
// EMPTY is retired and the caller is told to retry from the top, FULL is
// left unowned for a future freer to republish, and PARTIAL is either
// reinstalled as active or pushed to the partial queue.
func (h *Heap) allocFromOwned(d *Descriptor) (unsafe.Pointer, bool, error) {
	d.markOwned()
	for {
		a := d.loadAnchor()
		if a.state == stateEmpty {
			d.markUnowned()
			h.sc.retire(d)
			return nil, false, nil
		}

		next := loadSlotNext(d, a.avail)
		a2 := anchor{avail: next, count: a.count - 1, tag: a.tag + 1}
		if a2.count == 0 {
			a2.state = stateFull
		} else {
			a2.state = statePartial
		}

		if !d.casAnchor(a, a2) {
			h.sc.stats.casRetries.Add(1)
			continue
		}

		ptr := slotAddr(d, a.avail)
		h.sc.stats.allocs.Add(1)
		d.markUnowned()
		if a2.state == statePartial {
			h.republish(d)
		}
		return ptr, true, nil
	}
}

// republish implements the single-slot hand-off rule: try to reinstall d as
// this heap's active descriptor, and if some other goroutine got there
// first, push d to the size class's partial queue instead.
func (h *Heap) republish(d *Descriptor) {
	if h.active.CompareAndSwap(nil, d) {
		return
	}
	h.sc.pushPartial(d)
}

// allocFromNewSB acquires a descriptor and a fresh super-block, hands out
// slot 0, and races to install the descriptor as active. A nil, nil
// return means the race was lost and the caller should retry from the top
// of Alloc.
func (h *Heap) allocFromNewSB() (unsafe.Pointer, error) {
	d := globalDescPool.acquire(h.sc.cfg.NumDescBatch)

	usable, raw, err := newSuperBlock(h.sc.cfg, h.sc.provider, d)
	if err != nil {
		globalDescPool.release(d)
		return nil, fmt.Errorf("%w: %v", ErrOSMemory, err)
	}

	d.heap = h
	d.slotSize = h.sc.slotSize
	d.maxCount = h.sc.maxCount
	d.sb = usable
	d.raw = raw
	initFreeList(d)

	// State is derived from the resulting count rather than hardcoded to
	// PARTIAL, so the max_count=1 boundary can't start life in a state
	// that violates state=FULL <=> count=0.
	count := h.sc.maxCount - 1
	if count == 0 {
		// max_count=1: the one slot this SB has is already spoken for, so
		// d is FULL the instant it's born. An active descriptor is never
		// FULL, so d is left unowned exactly like a descriptor that went
		// FULL via the normal allocation step — recoverable only through
		// the SB header, never installed as active. The next Alloc on this
		// heap builds another fresh SB: every allocation against a
		// max_count=1 size class allocates a new super-block.
		d.storeAnchor(anchor{avail: sentinelNext, count: 0, state: stateFull, tag: 0})
		h.sc.stats.newSuperBlocks.Add(1)
		h.sc.stats.allocs.Add(1)
		return slotAddr(d, 0), nil
	}

	d.storeAnchor(anchor{avail: 1, count: count, state: statePartial, tag: 0})

	if !h.active.CompareAndSwap(nil, d) {
		d.storeAnchor(anchor{state: stateEmpty, count: h.sc.maxCount})
		h.sc.retire(d)
		return nil, nil
	}

	h.sc.stats.newSuperBlocks.Add(1)
	h.sc.stats.allocs.Add(1)
	return slotAddr(d, 0), nil
}
