package hazard

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	d := NewDomain()
	r1 := d.Acquire()
	require.NotNil(t, r1)
	d.Release(r1)

	r2 := d.Acquire()
	require.Same(t, r1, r2, "pool should hand back the released record")
	d.Release(r2)
}

func TestProtectPtrStableRead(t *testing.T) {
	d := NewDomain()
	r := d.Acquire()
	defer d.Release(r)

	val := 42
	var addr unsafe.Pointer = unsafe.Pointer(&val)

	got := ProtectPtr(r, 0, &addr)
	require.Equal(t, unsafe.Pointer(&val), got)
	r.Clear(0)
}

func TestRetireHoldsBackProtectedPointer(t *testing.T) {
	d := NewDomain()
	type node struct{ v int }
	n := &node{v: 7}

	r := d.Acquire()
	var addr unsafe.Pointer = unsafe.Pointer(n)
	ProtectPtr(r, 0, &addr)

	var reclaimed atomic.Bool
	for i := 0; i < d.scanThreshold()+1; i++ {
		Retire(d, n, func(*node) { reclaimed.Store(true) })
	}
	require.False(t, reclaimed.Load(), "a protected pointer must never be reclaimed")

	d.Release(r)
	for i := 0; i < d.scanThreshold()+1; i++ {
		Retire(d, n, func(*node) { reclaimed.Store(true) })
	}
	require.True(t, reclaimed.Load(), "once unprotected, retire must eventually reclaim")
}

func TestConcurrentAcquireRelease(t *testing.T) {
	d := NewDomain()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				r := d.Acquire()
				d.Release(r)
			}
		}()
	}
	wg.Wait()
}
