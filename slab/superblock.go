package slab

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/segrock/lfslab/internal/osmem"
)

// descRegistry keeps a GC-visible strong reference to every live descriptor,
// keyed by its super-block's base address. The header word written by
// storeDescriptorHeader lives inside a []byte, whose element type carries no
// pointer bits, so the garbage collector never scans it — a descriptor
// reachable only through that raw word is invisible to the collector even
// while its super-block's slots are still handed out to callers (the
// documented steady state once a descriptor goes FULL-and-unowned, and the
// only state a max_count=1 descriptor is ever in). descRegistry is what
// keeps such a descriptor alive between allocFromNewSB installing it and
// Free eventually recovering it, mirroring addressLocks in
// swarm/storage/localstore's Store.
var descRegistry sync.Map // uintptr(super-block base) -> *Descriptor

// newSuperBlock reserves an SBSize-aligned region from provider, writes the
// owning descriptor's back-pointer into its header word, registers d as
// live in descRegistry, and returns the usable slice (header excluded)
// plus the full raw region (kept around so it can later be handed back to
// provider.Release).
func newSuperBlock(cfg Config, provider osmem.Provider, d *Descriptor) (usable, raw []byte, err error) {
	raw, err = provider.Reserve(cfg.SBSize, cfg.SBSize)
	if err != nil {
		return nil, nil, err
	}
	storeDescriptorHeader(raw, d)
	descRegistry.Store(uintptr(unsafe.Pointer(&raw[0])), d)
	return raw[cfg.SBHeaderSize:], raw, nil
}

// storeDescriptorHeader writes d into the header word at the base of a
// super-block. Low-level atomic.StorePointer is used instead of an
// atomic.Pointer[Descriptor] reinterpretation of raw bytes, since the
// latter would depend on that type's internal field layout rather than a
// documented guarantee. This word is what makes descriptorForAddr an O(1)
// address mask-and-load instead of a descRegistry lookup on every Free; it
// is not, by itself, enough to keep d alive — see descRegistry.
func storeDescriptorHeader(raw []byte, d *Descriptor) {
	word := (*unsafe.Pointer)(unsafe.Pointer(&raw[0]))
	atomic.StorePointer(word, unsafe.Pointer(d))
}

// forgetDescriptorHeader removes raw's base address from descRegistry once
// its descriptor has been retired and its memory handed back to the
// provider, so a reused OS mapping at the same address doesn't retain the
// old descriptor forever.
func forgetDescriptorHeader(raw []byte) {
	descRegistry.Delete(uintptr(unsafe.Pointer(&raw[0])))
}

// descriptorForAddr recovers the descriptor owning the super-block that
// contains p in O(1): mask p down to an sbSize-aligned boundary and read
// the header word written there by storeDescriptorHeader. This is the only
// mechanism the free path has for identifying ownership; descRegistry
// exists purely to keep the same descriptor alive for the GC, not as a
// second lookup path.
func descriptorForAddr(p unsafe.Pointer, sbSize uintptr) *Descriptor {
	word := (*unsafe.Pointer)(unsafe.Pointer(uintptr(p) &^ (sbSize - 1)))
	return (*Descriptor)(atomic.LoadPointer(word))
}

// initFreeList links slot i's next-pointer to i+1 for every slot except
// the one about to be handed to the caller (slot 0) and the last slot,
// whose next-pointer is set to sentinelNext rather than left untouched
// (see DESIGN.md, Open Question Decision #1).
func initFreeList(d *Descriptor) {
	if d.maxCount == 0 {
		return
	}
	for i := uint32(1); i+1 < d.maxCount; i++ {
		storeSlotNext(d, i, i+1)
	}
	storeSlotNext(d, d.maxCount-1, sentinelNext)
}

func slotAddr(d *Descriptor, idx uint32) unsafe.Pointer {
	return unsafe.Pointer(&d.sb[uintptr(idx)*d.slotSize])
}

func loadSlotNext(d *Descriptor, idx uint32) uint32 {
	return *(*uint32)(slotAddr(d, idx))
}

func storeSlotNext(d *Descriptor, idx uint32, next uint32) {
	*(*uint32)(slotAddr(d, idx)) = next
}

func slotIndexForAddr(d *Descriptor, p unsafe.Pointer) (uint32, bool) {
	off := uintptr(p) - uintptr(unsafe.Pointer(&d.sb[0]))
	idx := off / d.slotSize
	if idx >= uintptr(d.maxCount) || off%d.slotSize != 0 {
		return 0, false
	}
	return uint32(idx), true
}
