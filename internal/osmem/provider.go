// Package osmem is the aligned OS-memory provider super-blocks are carved
// out of. Alignment matters here in a way it never does for ordinary
// allocations: a super-block's owning address must be recoverable from any
// slot pointer inside it with a single mask (addr &^ (SBSize-1)), so every
// super-block must start on an SBSize-aligned boundary.
package osmem

// Provider reserves and releases aligned regions of memory.
type Provider interface {
	// Reserve returns a byte slice of exactly size bytes whose first byte
	// sits at an address that is a multiple of align. align must be a
	// power of two.
	Reserve(size, align uintptr) ([]byte, error)

	// Release returns a region previously obtained from Reserve to the
	// operating system. Passing a slice that wasn't returned by Reserve,
	// or re-slicing one before passing it back, is undefined.
	Release(b []byte) error
}

// Default returns the Provider appropriate for the current platform.
func Default() Provider { return defaultProvider }
