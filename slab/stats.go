package slab

import "sync/atomic"

// sizeClassStats are plain atomic counters updated on the hot path. Every
// field here has to tolerate concurrent Alloc/Free calls.
type sizeClassStats struct {
	allocs         atomic.Int64
	frees          atomic.Int64
	newSuperBlocks atomic.Int64
	retires        atomic.Int64
	casRetries     atomic.Int64
	partialPushes  atomic.Int64
	partialPops    atomic.Int64
}

// Stats is a point-in-time snapshot of a SizeClass's activity. Fields can
// be stale the instant they're read under concurrent Alloc/Free calls;
// they are for observability, not for driving allocator logic.
type Stats struct {
	Allocs         int64
	Frees          int64
	NewSuperBlocks int64
	Retires        int64
	CASRetries     int64
	PartialPushes  int64
	PartialPops    int64
}

// Stats returns a snapshot of sc's counters.
func (sc *SizeClass) Stats() Stats {
	return Stats{
		Allocs:         sc.stats.allocs.Load(),
		Frees:          sc.stats.frees.Load(),
		NewSuperBlocks: sc.stats.newSuperBlocks.Load(),
		Retires:        sc.stats.retires.Load(),
		CASRetries:     sc.stats.casRetries.Load(),
		PartialPushes:  sc.stats.partialPushes.Load(),
		PartialPops:    sc.stats.partialPops.Load(),
	}
}
