package stress

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/segrock/lfslab/slab"
)

// TestABAFourGoroutinesStridedTagCheck is scenario S4: several goroutines
// race allocations against one heap, each tagging what it writes with its
// own goroutine index so a slot recycled into the wrong hands (the classic
// ABA failure mode for a freelist built on a CAS loop) is caught the
// instant it's read back, rather than only showing up as a later crash.
func TestABAFourGoroutinesStridedTagCheck(t *testing.T) {
	h := newHeap(t, 64)

	const goroutines = 4
	iterations := scaledIterations(t, 2_000_000)

	var scenarioErr atomic.Pointer[error]
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(tag int32) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				p, err := h.Alloc()
				if err != nil {
					storeFirstErr(&scenarioErr, err)
					return
				}
				want := tag<<10 | int32(i&0x3ff)
				*(*int32)(p) = want
				got := *(*int32)(p)
				if got != want {
					storeFirstErr(&scenarioErr, &abaMismatch{want: want, got: got})
					return
				}
				slab.Free(p)
			}
		}(int32(g))
	}
	wg.Wait()

	if e := scenarioErr.Load(); e != nil {
		t.Fatalf("goroutine failed: %v", *e)
	}

	var buf bytes.Buffer
	if err := h.CheckConsistency(&buf); err != nil {
		t.Fatalf("CheckConsistency: %v\n%s", err, buf.String())
	}
}

type abaMismatch struct {
	want, got int32
}

func (e *abaMismatch) Error() string {
	return "aba: slot read back a tag that was never written to it"
}
