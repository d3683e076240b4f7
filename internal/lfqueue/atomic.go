package lfqueue

import (
	"sync/atomic"
	"unsafe"
)

func loadNodePtr(addr *unsafe.Pointer) *Node {
	return (*Node)(atomic.LoadPointer(addr))
}

func storeNodePtr(addr *unsafe.Pointer, n *Node) {
	atomic.StorePointer(addr, unsafe.Pointer(n))
}

func casNodePtr(addr *unsafe.Pointer, old, new_ *Node) bool {
	return atomic.CompareAndSwapPointer(addr, unsafe.Pointer(old), unsafe.Pointer(new_))
}

func addLen(addr *int64, delta int64) {
	atomic.AddInt64(addr, delta)
}

func loadLen(addr *int64) int64 {
	return atomic.LoadInt64(addr)
}
