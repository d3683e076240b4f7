package slab

// maxPartialScan bounds listRemoveEmptyDesc's cleanup pass. The cutoff of
// two non-empty descriptors is a throttle, not a derived invariant — kept
// as an unexported constant rather than a Config field for exactly that
// reason (see DESIGN.md, Open Question Decision #2).
const maxPartialScan = 2

// listRemoveEmptyDesc is the cooperative cleanup a freer runs when its CAS
// against heap.active loses the race to retire its own newly-EMPTY
// descriptor: pop descriptors off the partial queue, retire any found
// EMPTY, and push the rest back, stopping once maxPartialScan non-empty
// descriptors have been seen. This prevents empty descriptors from piling
// up on the partial queue when EMPTY transitions race against active
// hand-offs.
func (sc *SizeClass) listRemoveEmptyDesc() {
	nonEmpty := 0
	for nonEmpty < maxPartialScan {
		n := sc.partial.Pop()
		if n == nil {
			return
		}
		d := descriptorFromNode(n)
		if d.loadAnchor().state == stateEmpty {
			sc.retire(d)
			continue
		}
		sc.pushPartial(d)
		nonEmpty++
	}
}
