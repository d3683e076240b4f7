package slab

import (
	"fmt"
	"io"
	"unsafe"
)

// DescriptorForAddr exposes descriptor recovery for tests and property
// checks that want to confirm two addresses came from the same super-block
// without going through a full Alloc/Free cycle.
func DescriptorForAddr(p unsafe.Pointer) *Descriptor {
	return descriptorForAddr(p, currentSBSize())
}

// CheckConsistency walks h's active descriptor and every descriptor
// currently sitting on its size class's partial queue, asserting that
// state matches count and that the in-SB free list starting at avail is a
// simple chain of exactly count distinct valid indices. Diagnostics are
// written to w; this is the only place in the module logging happens on
// purpose.
//
// Every descriptor popped off the partial queue during the walk is pushed
// back before returning, so a consistency check never changes what a
// subsequent Alloc/Free observes.
func (h *Heap) CheckConsistency(w io.Writer) error {
	var popped []*Descriptor
	defer func() {
		for _, d := range popped {
			h.sc.partial.Push(d.nodeRef())
		}
	}()

	if d := h.active.Load(); d != nil {
		if err := checkDescriptor(w, d, "active"); err != nil {
			return err
		}
	}

	for {
		n := h.sc.partial.Pop()
		if n == nil {
			break
		}
		d := descriptorFromNode(n)
		popped = append(popped, d)
		if err := checkDescriptor(w, d, "partial"); err != nil {
			return err
		}
	}
	return nil
}

func checkDescriptor(w io.Writer, d *Descriptor, role string) error {
	a := d.loadAnchor()

	switch {
	case a.state == stateEmpty && a.count != d.maxCount:
		fmt.Fprintf(w, "descriptor %p (%s): state EMPTY but count=%d want %d\n", d, role, a.count, d.maxCount)
		return ErrConsistency
	case a.state == stateFull && a.count != 0:
		fmt.Fprintf(w, "descriptor %p (%s): state FULL but count=%d want 0\n", d, role, a.count)
		return ErrConsistency
	case a.state == statePartial && (a.count == 0 || a.count >= d.maxCount):
		fmt.Fprintf(w, "descriptor %p (%s): state PARTIAL but count=%d out of (0,%d)\n", d, role, a.count, d.maxCount)
		return ErrConsistency
	}

	if a.state == stateEmpty {
		fmt.Fprintf(w, "descriptor %p (%s): EMPTY, pending retirement\n", d, role)
		return nil
	}

	seen := make(map[uint32]bool, a.count)
	idx := a.avail
	for i := uint32(0); i < a.count; i++ {
		if idx >= d.maxCount || seen[idx] {
			fmt.Fprintf(w, "descriptor %p (%s): free list revisits or leaves range at step %d (idx=%d)\n", d, role, i, idx)
			return ErrConsistency
		}
		seen[idx] = true
		idx = loadSlotNext(d, idx)
	}

	fmt.Fprintf(w, "descriptor %p (%s): state=%s count=%d max_count=%d ok\n", d, role, a.state, a.count, d.maxCount)
	return nil
}
