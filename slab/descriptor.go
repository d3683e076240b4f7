package slab

import (
	"sync/atomic"
	"unsafe"

	"github.com/segrock/lfslab/internal/lfqueue"
)

// Descriptor is the per-super-block control record: the anchor word, slot
// geometry, the owning heap, and the queue-link used to place it on either
// the global descriptor free pool or its size class's partial queue —
// never both at once: a live descriptor is always in exactly one of
// active, partial, or privately held by a single goroutine.
//
// node must stay the first field. Both the descriptor pool and every
// partial queue recover a *Descriptor from a popped *lfqueue.Node by
// reinterpreting its address (descriptorFromNode); that only works at
// offset zero.
type Descriptor struct {
	node lfqueue.Node

	heap     *Heap
	anchorW  atomic.Uint64
	slotSize uintptr
	maxCount uint32
	sb       []byte // usable region, header already excluded
	raw      []byte // full region, for returning to the provider

	inUse debugFlag
}

func descriptorFromNode(n *lfqueue.Node) *Descriptor {
	return (*Descriptor)(unsafe.Pointer(n))
}

func (d *Descriptor) nodeRef() *lfqueue.Node { return &d.node }

func (d *Descriptor) loadAnchor() anchor { return unpackAnchor(d.anchorW.Load()) }

func (d *Descriptor) storeAnchor(a anchor) { d.anchorW.Store(packAnchor(a)) }

func (d *Descriptor) casAnchor(old, new_ anchor) bool {
	return d.anchorW.CompareAndSwap(packAnchor(old), packAnchor(new_))
}

// markOwned and markUnowned bracket the window during which exactly one
// goroutine privately holds d (via an active-slot swap or a partial-queue
// pop). They back the in_use debug-only assertion aid: a no-op in release
// builds, a real check in lfslab_debug builds (see debugflag_debug.go and
// descpool.go's release precondition check).
func (d *Descriptor) markOwned()   { d.inUse.set(true) }
func (d *Descriptor) markUnowned() { d.inUse.set(false) }

// reset zeroes d in place so a freshly-acquired descriptor never leaks the
// previous tenant's anchor, slots, or back-pointer. Only called once the
// descriptor has been hazard-retired, i.e. nothing else can be observing it.
func (d *Descriptor) reset() {
	*d = Descriptor{}
}
