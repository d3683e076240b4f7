package osmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestReserveIsAligned(t *testing.T) {
	p := Default()
	const size = 16384
	const align = 16384

	b, err := p.Reserve(size, align)
	require.NoError(t, err)
	require.Len(t, b, size)

	addr := uintptr(unsafe.Pointer(&b[0]))
	require.Zero(t, addr%align, "reserved region must start on an align-byte boundary")

	require.NoError(t, p.Release(b))
}

func TestReserveRejectsNonPowerOfTwoAlign(t *testing.T) {
	p := Default()
	_, err := p.Reserve(4096, 3)
	require.Error(t, err)
}

func TestReserveMultipleRegionsDontOverlap(t *testing.T) {
	p := Default()
	const size = 4096
	const align = 4096

	a, err := p.Reserve(size, align)
	require.NoError(t, err)
	b, err := p.Reserve(size, align)
	require.NoError(t, err)

	aStart := uintptr(unsafe.Pointer(&a[0]))
	bStart := uintptr(unsafe.Pointer(&b[0]))
	require.NotEqual(t, aStart, bStart)

	require.NoError(t, p.Release(a))
	require.NoError(t, p.Release(b))
}
