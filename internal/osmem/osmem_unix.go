//go:build unix

package osmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

var defaultProvider Provider = unixProvider{}

// unixProvider reserves anonymous, aligned mappings with mmap. It
// over-reserves 2*align bytes and trims the unaligned head and tail back to
// the OS, the same technique the Go runtime's sysReserveAligned uses to get
// an aligned region out of an allocator with no alignment parameter of its
// own.
type unixProvider struct{}

func (unixProvider) Reserve(size, align uintptr) ([]byte, error) {
	if align == 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("osmem: align %d is not a power of two", align)
	}

	raw, err := unix.Mmap(-1, 0, int(size+align), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("osmem: mmap failed: %w", err)
	}

	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + align - 1) &^ (align - 1)
	offset := aligned - base

	if offset > 0 {
		if err := unix.Munmap(raw[:offset]); err != nil {
			_ = unix.Munmap(raw[offset:])
			return nil, fmt.Errorf("osmem: trim head failed: %w", err)
		}
	}
	tail := offset + size
	if tail < uintptr(len(raw)) {
		if err := unix.Munmap(raw[tail:]); err != nil {
			_ = unix.Munmap(raw[offset:tail])
			return nil, fmt.Errorf("osmem: trim tail failed: %w", err)
		}
	}
	return raw[offset:tail:tail], nil
}

func (unixProvider) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	return unix.Munmap(b)
}
