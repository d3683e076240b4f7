// Package lfqueue implements the MPMC lock-free structure that the slab
// allocator's descriptor pool and size-class partial lists sit on top of.
//
// It has no notion of descriptors, super-blocks, or anchors: it only knows
// how to push and pop *Node-embedding elements without a lock. Ordering
// across concurrent poppers is not guaranteed to be FIFO — callers that need
// an unordered multiset of "things available to reuse" (a free pool, a
// partial list) are the intended use; callers needing fairness are not.
package lfqueue

import (
	"unsafe"

	"github.com/segrock/lfslab/internal/hazard"
)

// Node is the intrusive link a type embeds to become poppable from a Stack.
// It must be the first field of the embedding struct: Stack recovers the
// owning element from a popped *Node by reinterpreting its address, which
// only works at offset zero.
type Node struct {
	next unsafe.Pointer // *Node
}

// Stack is a Treiber-style lock-free LIFO of Node-embedding elements. The
// head pointer is protected by hazard.Domain so that a popper's read of
// head.next can't race with another popper recycling that same node's
// memory underneath it (see internal/hazard's doc comment for why this
// matters here and not merely on the allocation hot path).
type Stack struct {
	head   unsafe.Pointer // *Node
	domain *hazard.Domain
	len    int64 // advisory only, read via Len; not part of any invariant
}

// New returns an empty Stack that hazard-protects its pops using d.
func New(d *hazard.Domain) *Stack {
	return &Stack{domain: d}
}

// Push makes n available to future Pop callers. n must not already be
// linked into this or any other Stack.
func (s *Stack) Push(n *Node) {
	for {
		old := loadNodePtr(&s.head)
		storeNodePtr(&n.next, old)
		if casNodePtr(&s.head, old, n) {
			addLen(&s.len, 1)
			return
		}
	}
}

// Pop removes and returns the most recently pushed node, or nil if the
// stack is empty. The returned node's next field is cleared before it is
// handed back: callers must not assume it carries leftover stack-internal
// state.
func (s *Stack) Pop() *Node {
	rec := s.domain.Acquire()
	defer s.domain.Release(rec)

	for {
		oldPtr := hazard.ProtectPtr(rec, 0, &s.head)
		if oldPtr == nil {
			return nil
		}
		old := (*Node)(oldPtr)
		next := loadNodePtr(&old.next)
		if casNodePtr(&s.head, old, next) {
			addLen(&s.len, -1)
			storeNodePtr(&old.next, nil)
			return old
		}
		rec.Clear(0)
	}
}

// Len reports the approximate number of elements currently on the stack.
// It is for metrics only; concurrent Push/Pop calls can make it stale the
// instant it returns.
func (s *Stack) Len() int64 {
	return loadLen(&s.len)
}
