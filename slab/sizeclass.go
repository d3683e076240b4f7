package slab

import (
	"fmt"

	"github.com/segrock/lfslab/internal/hazard"
	"github.com/segrock/lfslab/internal/lfqueue"
	"github.com/segrock/lfslab/internal/osmem"
)

// SizeClass backs every Heap allocating slotSize bytes. Its partial queue
// of non-full, non-empty descriptors is global across every Heap bound to
// it — multiple heaps may share one SizeClass and all of them contend on
// the one partial queue.
type SizeClass struct {
	cfg      Config
	provider osmem.Provider
	slotSize uintptr
	maxCount uint32

	partial *lfqueue.Stack

	stats sizeClassStats
}

// NewSizeClass validates slotSize against cfg and returns a SizeClass ready
// to back one or more Heaps, using the default OS memory provider.
func NewSizeClass(cfg Config, slotSize uintptr) (*SizeClass, error) {
	return newSizeClass(cfg, slotSize, osmem.Default())
}

func newSizeClass(cfg Config, slotSize uintptr, provider osmem.Provider) (*SizeClass, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := registerGeometry(cfg); err != nil {
		return nil, err
	}
	if slotSize < 4 {
		return nil, fmt.Errorf("%w: %d smaller than a free-list index", ErrInvalidSlotSize, slotSize)
	}
	if slotSize > cfg.MaxSmallSize {
		return nil, fmt.Errorf("%w: %d larger than MaxSmallSize %d", ErrInvalidSlotSize, slotSize, cfg.MaxSmallSize)
	}
	maxCount := uint32(cfg.usableSize() / slotSize)
	if maxCount == 0 {
		return nil, fmt.Errorf("%w: %d leaves no room for a single slot", ErrInvalidSlotSize, slotSize)
	}
	if maxCount > maxSlotCount {
		return nil, fmt.Errorf("%w: %d yields max_count %d, exceeding the 10-bit avail/count limit", ErrInvalidSlotSize, slotSize, maxCount)
	}

	return &SizeClass{
		cfg:      cfg,
		provider: provider,
		slotSize: slotSize,
		maxCount: maxCount,
		partial:  lfqueue.New(globalDescPool.domain),
	}, nil
}

// SlotSize returns the fixed allocation size this size class serves.
func (sc *SizeClass) SlotSize() uintptr { return sc.slotSize }

// MaxCount returns the number of slots one super-block holds for this size
// class.
func (sc *SizeClass) MaxCount() uint32 { return sc.maxCount }

// retire releases d's super-block back to the OS and schedules d itself for
// hazard-deferred return to the global descriptor pool.
func (sc *SizeClass) retire(d *Descriptor) {
	forgetDescriptorHeader(d.raw)
	_ = sc.provider.Release(d.raw)
	sc.stats.retires.Add(1)
	globalDescPool.release(d)
}

// pushPartial hazard-defers re-linking d onto sc's partial queue. Deferring
// this (rather than pushing immediately) matters because d's queue node may
// still be under a concurrent lfqueue.Stack.Pop's hazard-protected read — see
// internal/hazard's package doc comment.
func (sc *SizeClass) pushPartial(d *Descriptor) {
	hazard.Retire(globalDescPool.domain, d, func(d *Descriptor) {
		sc.partial.Push(d.nodeRef())
	})
	sc.stats.partialPushes.Add(1)
}
