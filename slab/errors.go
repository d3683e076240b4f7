package slab

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrOSMemory means the OS memory provider could not satisfy a
	// super-block reservation. The allocator's state is left consistent;
	// callers may retry later.
	ErrOSMemory = errors.New("slab: os memory provider exhausted")

	// ErrDescriptorPool means descriptor-pool batch replenishment failed.
	// Reserved for a custom Provider that backs descriptor storage itself;
	// the default pool allocates descriptor batches on the Go heap, which
	// panics rather than erroring on exhaustion, so this is unused by
	// DefaultConfig-based heaps.
	ErrDescriptorPool = errors.New("slab: descriptor pool exhausted")

	// ErrInvalidSlotSize means a requested slot size cannot be served by
	// the configured super-block geometry.
	ErrInvalidSlotSize = errors.New("slab: slot size out of range for configured super-block size")

	// ErrDoubleFree means a pointer was freed twice, or was never owned
	// by this allocator.
	ErrDoubleFree = errors.New("slab: slot freed twice or pointer not owned by this allocator")

	// ErrConsistency means CheckConsistency (or a debug-build assertion)
	// found a violated invariant.
	ErrConsistency = errors.New("slab: consistency check failed")

	// ErrGeometryMismatch means a SizeClass was created with SBSize or
	// SBHeaderSize different from the first SizeClass created in this
	// process; every super-block's owning descriptor must be recoverable
	// with the same address mask.
	ErrGeometryMismatch = errors.New("slab: SBSize/SBHeaderSize must be identical for every size class in one process")
)
