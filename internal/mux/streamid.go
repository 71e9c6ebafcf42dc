package mux

// streamIDAllocator hands out stream_ids disjoint from the peer's
// allocations by parity: one side always allocates even ids, the other
// always odd. A freed id is not handed out again until it has cooled
// for graceCycles completed drain passes, so a stream cannot be
// confused with a just-deleted one still in flight on the wire.
const graceCycles = 1

type streamIDAllocator struct {
	parity uint8 // 0 or 1: the low bit every id this allocator hands out has
	cursor uint8
	cooling map[uint8]int
}

func newStreamIDAllocator(parity uint8) *streamIDAllocator {
	a := &streamIDAllocator{parity: parity & 1, cooling: make(map[uint8]int)}
	a.cursor = a.parity
	return a
}

// allocate returns a fresh id not currently in use (per inUse) and not
// cooling down from a recent release.
func (a *streamIDAllocator) allocate(inUse func(id uint8) bool) (uint8, error) {
	start := a.cursor
	for {
		id := a.cursor
		a.cursor += 2
		if _, cooling := a.cooling[id]; !cooling && !inUse(id) {
			return id, nil
		}
		if a.cursor == start {
			return 0, ErrStreamIDExhausted
		}
	}
}

// release starts an id's cooldown after its socket has been fully
// deleted.
func (a *streamIDAllocator) release(id uint8) {
	a.cooling[id] = graceCycles
}

// tick advances one completed drain pass, decrementing every cooling
// id's remaining grace and evicting those that have fully cooled.
func (a *streamIDAllocator) tick() {
	for id, remaining := range a.cooling {
		if remaining <= 1 {
			delete(a.cooling, id)
		} else {
			a.cooling[id] = remaining - 1
		}
	}
}
