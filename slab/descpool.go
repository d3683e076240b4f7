package slab

import (
	"github.com/segrock/lfslab/internal/diag"
	"github.com/segrock/lfslab/internal/hazard"
	"github.com/segrock/lfslab/internal/lfqueue"
)

// descPool is the process-wide free-descriptor structure: a single
// atomically-managed LIFO, initialized on first use. Every SizeClass in a
// process, regardless of slot size, draws descriptors from and returns
// them to this one pool — descriptor records have no slot-size-specific
// shape until initFreeList runs, so there is nothing to segregate them by.
type descPool struct {
	domain *hazard.Domain
	free   *lfqueue.Stack
}

func newDescPool() *descPool {
	domain := hazard.NewDomain()
	return &descPool{domain: domain, free: lfqueue.New(domain)}
}

var globalDescPool = newDescPool()

// acquire pops a descriptor off the free stack, replenishing it with a
// batch of n fresh, Go-heap-allocated Descriptor records if it's empty.
// Descriptor records themselves need no OS-level alignment — only the
// super-block memory they come to own does — so batch growth uses a plain
// slice rather than the osmem.Provider (see DESIGN.md's dropped-dependency
// note on this point).
func (p *descPool) acquire(n int) *Descriptor {
	if node := p.free.Pop(); node != nil {
		return descriptorFromNode(node)
	}

	batch := make([]Descriptor, n)
	for i := 1; i < len(batch); i++ {
		p.free.Push(batch[i].nodeRef())
	}
	return &batch[0]
}

// release schedules d for hazard-deferred return to the free stack. d must
// be in state EMPTY and not referenced by any heap's active slot or any
// partial queue — the caller (SizeClass.retire) is responsible for having
// already satisfied that precondition.
func (p *descPool) release(d *Descriptor) {
	if d.inUse.get() {
		diag.Abort("descriptor %p released while still marked in_use", d)
	}
	hazard.Retire(p.domain, d, func(d *Descriptor) {
		d.reset()
		p.free.Push(d.nodeRef())
	})
}
