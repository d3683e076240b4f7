// Package hazard implements the Michael (2004) hazard-pointer protocol used
// to make deferred reclamation of lock-free structure nodes safe: a node
// popped off a Stack (internal/lfqueue) is never handed back to the OS or
// recycled into a fresh Descriptor while some other goroutine's in-flight
// traversal might still dereference it.
//
// Go has no per-OS-thread storage to pin a fixed hazard-pointer slot set
// per pthread, so this package hands out slot sets (Record) on loan from a
// sync.Pool instead of keeping them forever. A Record checked out by one
// goroutine is still visible to every other goroutine's Retire scan, which
// is what makes checkout-per-operation as safe as a permanent pin.
package hazard

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// NumSlots is the number of hazard pointers a single Record can publish at
// once. The allocator only ever needs to protect one pointer at a time (the
// head of a Stack during Pop), but a second slot is kept spare the way the
// reference implementation reserves hazard index 1 and leaves index 0 free
// for other subsystems.
const NumSlots = 2

// defaultScanMultiple sets how many retired-but-unreclaimed pointers
// accumulate, per live Record, before a Retire call triggers a scan.
const defaultScanMultiple = 2

// Record is a loaned set of hazard-pointer slots. Acquire one from a Domain
// before reading the head of a lock-free structure, publish the pointer
// you're about to dereference into a slot, and Release the record once
// you're done with it (or once your CAS attempt has resolved, success or
// failure).
type Record struct {
	slots [NumSlots]unsafe.Pointer
}

// Clear retracts whatever pointer was published in slot idx, letting a
// pending Retire scan reclaim it once no other record still protects it.
func (r *Record) Clear(idx int) {
	atomic.StorePointer(&r.slots[idx], nil)
}

type retiredItem struct {
	ptr     unsafe.Pointer
	reclaim func(unsafe.Pointer)
}

// Domain is the process-wide hazard-pointer registry. One Domain is shared
// by every Stack and every caller of Retire that needs to agree on what's
// currently protected.
type Domain struct {
	pool sync.Pool

	mu      sync.Mutex
	records []*Record

	retireMu sync.Mutex
	retired  []retiredItem
}

// NewDomain returns an empty hazard-pointer domain.
func NewDomain() *Domain {
	d := &Domain{}
	d.pool.New = func() any {
		r := &Record{}
		d.mu.Lock()
		d.records = append(d.records, r)
		d.mu.Unlock()
		return r
	}
	return d
}

// Acquire checks out a Record for the caller's exclusive use until it is
// returned via Release. Acquire never blocks: if the pool is empty it grows
// the domain by one record.
func (d *Domain) Acquire() *Record {
	return d.pool.Get().(*Record)
}

// Release clears every slot in r and returns it to the pool for reuse.
func (d *Domain) Release(r *Record) {
	for i := range r.slots {
		r.Clear(i)
	}
	d.pool.Put(r)
}

// testHookAfterProtect, when non-nil, runs every time ProtectPtr obtains a
// stable read, immediately before returning it. testHookBeforeReclaim, when
// non-nil, runs immediately before scan reclaims a retired item. Both are
// nil in production; tests outside this package install them with
// SetAfterProtectHook and SetBeforeReclaimHook to force an otherwise
// timing-dependent interleaving between a protected read and a concurrent
// Retire onto a deterministic schedule.
var (
	testHookAfterProtect  func()
	testHookBeforeReclaim func(unsafe.Pointer)
)

// SetAfterProtectHook installs f to run after every stable ProtectPtr read.
// Passing nil removes the hook. Not safe to call concurrently with a
// ProtectPtr call that might observe the old value mid-install; tests
// install hooks before starting the goroutines that exercise them.
func SetAfterProtectHook(f func()) { testHookAfterProtect = f }

// SetBeforeReclaimHook installs f to run immediately before scan reclaims
// each retired pointer. Passing nil removes the hook.
func SetBeforeReclaimHook(f func(unsafe.Pointer)) { testHookBeforeReclaim = f }

// ProtectPtr publishes *addr into slot idx of r and re-reads *addr to
// confirm the published value is still current, retrying until a stable
// read is obtained. The returned pointer is guaranteed not to be reclaimed
// by any Retire call on this domain until r.Clear(idx) or d.Release(r) is
// called.
func ProtectPtr(r *Record, idx int, addr *unsafe.Pointer) unsafe.Pointer {
	for {
		p := atomic.LoadPointer(addr)
		atomic.StorePointer(&r.slots[idx], p)
		p2 := atomic.LoadPointer(addr)
		if p2 == p {
			if testHookAfterProtect != nil {
				testHookAfterProtect()
			}
			return p
		}
	}
}

// Protect is the typed convenience wrapper around ProtectPtr for callers
// holding an *atomic.Pointer[T] rather than a raw unsafe.Pointer slot.
func Protect[T any](r *Record, idx int, slot *atomic.Pointer[T]) *T {
	addr := (*unsafe.Pointer)(unsafe.Pointer(slot))
	return (*T)(ProtectPtr(r, idx, addr))
}

// Retire schedules ptr for reclamation via reclaim once no Record in the
// domain still protects it. It is always asynchronous: reclaim may run on
// this call's goroutine (if a scan happens to trigger now) or on some
// future caller's goroutine, never before.
func Retire[T any](d *Domain, ptr *T, reclaim func(*T)) {
	if ptr == nil {
		return
	}
	item := retiredItem{
		ptr: unsafe.Pointer(ptr),
		reclaim: func(p unsafe.Pointer) {
			reclaim((*T)(p))
		},
	}

	d.retireMu.Lock()
	d.retired = append(d.retired, item)
	due := len(d.retired) >= d.scanThreshold()
	d.retireMu.Unlock()

	if due {
		d.scan()
	}
}

func (d *Domain) scanThreshold() int {
	d.mu.Lock()
	n := len(d.records)
	d.mu.Unlock()
	if n == 0 {
		n = 1
	}
	return n * defaultScanMultiple
}

// scan compares every currently-retired pointer against every published
// hazard slot in the domain and reclaims the ones nobody protects.
// Pointers that are still protected stay on the retire list for the next
// scan.
func (d *Domain) scan() {
	d.retireMu.Lock()
	batch := d.retired
	d.retired = nil
	d.retireMu.Unlock()

	if len(batch) == 0 {
		return
	}

	d.mu.Lock()
	recs := make([]*Record, len(d.records))
	copy(recs, d.records)
	d.mu.Unlock()

	protected := make(map[unsafe.Pointer]struct{}, len(recs)*NumSlots)
	for _, r := range recs {
		for i := range r.slots {
			if p := atomic.LoadPointer(&r.slots[i]); p != nil {
				protected[p] = struct{}{}
			}
		}
	}

	remaining := batch[:0]
	for _, item := range batch {
		if _, busy := protected[item.ptr]; busy {
			remaining = append(remaining, item)
			continue
		}
		if testHookBeforeReclaim != nil {
			testHookBeforeReclaim(item.ptr)
		}
		item.reclaim(item.ptr)
	}

	if len(remaining) > 0 {
		d.retireMu.Lock()
		d.retired = append(d.retired, remaining...)
		d.retireMu.Unlock()
	}
}
