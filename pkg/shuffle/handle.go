package shuffle

import "github.com/Real-Fruit-Snacks/Riverbed/internal/shared"

// Handle identifies exactly one live allocation. Handles are opaque
// collision-checked crypto-random values: observing a handle reveals nothing
// about allocation order or how many allocations are live.
type Handle uint64

// InvalidHandle is the reserved sentinel. It is never issued and never maps
// to an allocation.
const InvalidHandle Handle = 0

// issueHandle draws a fresh handle. The sentinel and any currently-live
// value are rejected and redrawn. Callers must hold s.mu.
func (s *Shuffler) issueHandle() Handle {
	for {
		h := Handle(shared.Uint64())
		if h == InvalidHandle {
			continue
		}
		if _, live := s.entries[h]; live {
			continue
		}
		return h
	}
}
