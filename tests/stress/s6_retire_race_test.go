package stress

import (
	"bytes"
	"testing"
	"unsafe"

	"github.com/segrock/lfslab/internal/hazard"
	"github.com/segrock/lfslab/slab"
)

// TestRetireDeferredWhilePeerPopsSameDescriptor is scenario S6:
// retire-while-peer-CASes. One goroutine is paused by a hazard test hook
// the instant it has hazard-protected the head of the partial queue (the
// descriptor it is about to pop and allocate from); while it's paused, a
// second goroutine frees the descriptor's last live slot, which drives it
// to EMPTY and races to remove it from the very same queue. Reclamation of
// that descriptor must stay deferred until the paused goroutine either
// wins the pop and discovers EMPTY on its own next anchor read, or loses
// it and clears its hazard record — never while its protected read is
// still outstanding.
func TestRetireDeferredWhilePeerPopsSameDescriptor(t *testing.T) {
	defer hazard.SetAfterProtectHook(nil)
	defer hazard.SetBeforeReclaimHook(nil)

	const maxCount = 2
	h := newHeap(t, bytesPerSlotForMaxCount(t, maxCount))

	// Build two super-blocks, each down to one live slot, with the second
	// one (sb2) sitting on the partial queue rather than active: sb1 ends
	// up occupying the heap's one active slot by the time sb2 is freed
	// down to PARTIAL, so sb2's free pushes it to the partial queue instead.
	p0, err := h.Alloc() // sb1, installed active
	mustNoErr(t, err)
	p1, err := h.Alloc() // pops sb1 active, drains it to FULL-unowned
	mustNoErr(t, err)
	p2, err := h.Alloc() // active nil, partial empty: new sb2, installed active
	mustNoErr(t, err)
	p3, err := h.Alloc() // pops sb2 active, drains it to FULL-unowned
	mustNoErr(t, err)

	slab.Free(p0) // sb1 FULL -> PARTIAL, active was nil: installed active
	slab.Free(p2) // sb2 FULL -> PARTIAL, active occupied by sb1: pushed to partial

	p4, err := h.Alloc() // pops sb1 back off active, leaves active nil again
	mustNoErr(t, err)

	// Now: active == nil, partial == [sb2], sb2 has exactly one free slot
	// (p2's) and one live slot (p3) remaining.
	sb2 := slab.DescriptorForAddr(p3)

	paused := make(chan struct{})
	resume := make(chan struct{})
	fired := false
	hazard.SetAfterProtectHook(func() {
		if fired {
			return
		}
		fired = true
		close(paused)
		<-resume
	})
	hazard.SetBeforeReclaimHook(func(ptr unsafe.Pointer) {
		if ptr == unsafe.Pointer(sb2) {
			t.Logf("sb2's descriptor reclaimed once no hazard record protected it")
		}
	})

	type allocResult struct {
		p   unsafe.Pointer
		err error
	}
	done := make(chan allocResult, 1)
	go func() {
		p, err := h.Alloc() // will tryPartial, popping sb2 under the paused hook
		done <- allocResult{p: p, err: err}
	}()

	<-paused
	// sb2 is still physically linked into the partial queue: the pop that
	// protected it hasn't completed its removal CAS yet. Freeing its last
	// live slot now forces exactly the race S6 describes: this call's own
	// attempt to remove the newly-EMPTY sb2 from partial runs concurrently
	// with the paused goroutine's in-flight pop of that same node.
	slab.Free(p3)
	close(resume)

	r := <-done
	mustNoErr(t, r.err)

	hazard.SetAfterProtectHook(nil)

	slab.Free(p1)
	slab.Free(p4)
	slab.Free(r.p)

	var buf bytes.Buffer
	if err := h.CheckConsistency(&buf); err != nil {
		t.Fatalf("CheckConsistency: %v\n%s", err, buf.String())
	}
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
}

// bytesPerSlotForMaxCount picks a slot size that makes DefaultConfig's
// usable region hold exactly maxCount slots, so the race above has a
// small, fully enumerable state space instead of thousands of slots to
// reason about.
func bytesPerSlotForMaxCount(t *testing.T, maxCount uintptr) uintptr {
	t.Helper()
	usable := slab.DefaultConfig().SBSize - slab.DefaultConfig().SBHeaderSize
	return usable / maxCount
}
