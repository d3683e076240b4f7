package slab

// The anchor packs (avail, count, state, tag) into one 64-bit word so that
// every multi-field state change on a descriptor goes through a single CAS.
// This uses a packed atomic.Uint64 plus pure pack/unpack functions rather
// than a bitfield union.
const (
	availBits = 10
	countBits = 10
	stateBits = 2
	tagBits   = 64 - availBits - countBits - stateBits // 42

	availShift = 0
	countShift = availShift + availBits
	stateShift = countShift + countBits
	tagShift   = stateShift + stateBits

	availMask uint64 = (1 << availBits) - 1
	countMask uint64 = (1 << countBits) - 1
	stateMask uint64 = (1 << stateBits) - 1
	tagMask   uint64 = (1 << tagBits) - 1
)

// maxSlotCount is the largest max_count the 10-bit avail/count fields can
// address without overflow.
const maxSlotCount = 1<<availBits - 2 // 1022

// sentinelNext marks the next-pointer of the last slot in a freshly
// initialized super-block. Leaving it as whatever bytes the OS handed back
// would only be safe because the free step always rewrites a slot's
// next-pointer before that slot's index can be reached by avail; this
// initializes it explicitly instead of relying on that subtlety (see
// DESIGN.md, Open Question Decisions, #1).
const sentinelNext = ^uint32(0)

type sbState uint8

const (
	stateFull sbState = iota
	statePartial
	stateEmpty
)

func (s sbState) String() string {
	switch s {
	case stateFull:
		return "FULL"
	case statePartial:
		return "PARTIAL"
	case stateEmpty:
		return "EMPTY"
	default:
		return "INVALID"
	}
}

// anchor is the unpacked view of a descriptor's 64-bit anchor word.
type anchor struct {
	avail uint32
	count uint32
	state sbState
	tag   uint64
}

func packAnchor(a anchor) uint64 {
	return (uint64(a.avail)&availMask)<<availShift |
		(uint64(a.count)&countMask)<<countShift |
		(uint64(a.state)&stateMask)<<stateShift |
		(a.tag&tagMask)<<tagShift
}

func unpackAnchor(w uint64) anchor {
	return anchor{
		avail: uint32((w >> availShift) & availMask),
		count: uint32((w >> countShift) & countMask),
		state: sbState((w >> stateShift) & stateMask),
		tag:   (w >> tagShift) & tagMask,
	}
}
