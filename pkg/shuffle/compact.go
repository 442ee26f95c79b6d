package shuffle

import (
	"github.com/Real-Fruit-Snacks/Riverbed/internal/shared"
	"github.com/Real-Fruit-Snacks/Riverbed/pkg/mem"
)

// pending is one unlocked survivor awaiting relocation, paired with the
// region it came from so a failed pass can be unwound.
type pending struct {
	e    *entry
	from *region
}

// compact relocates every unlocked live entry into a single destination
// region in cryptographically random order, discards entries marked by
// Free, and releases regions that ended up empty. Locked entries stay
// exactly where they are. Callers must hold s.mu.
func (s *Shuffler) compact() error {
	if len(s.entries) == 0 {
		return nil
	}

	// Regions already empty when the pass starts are the only reuse
	// candidates for the destination. A region emptied by this very pass
	// still holds survivor bytes below its bump pointer, and new carves
	// must never overlap bytes that are yet to be copied.
	preEmpty := make([]bool, len(s.regions))
	for i, r := range s.regions {
		preEmpty[i] = r.empty()
	}

	// Partition every region's membership. Locked entries keep their
	// membership; everything unlocked is pulled out, either discarded
	// (to-clear) or queued for relocation.
	var survivors []pending
	for _, r := range s.regions {
		removed := false
		for h := range r.handles {
			e := s.entries[h]
			if e.locked {
				continue
			}
			delete(r.handles, h)
			removed = true
			if e.toClear {
				// The ciphertext is abandoned in place until the region
				// is reset, but there is no reason to leave it legible.
				mem.Shred(e.data)
				e.data = nil
				delete(s.entries, h)
				continue
			}
			survivors = append(survivors, pending{e: e, from: r})
		}
		if removed && !r.empty() {
			r.stale = true
		}
	}

	// Destination: reuse a pre-pass-empty region, else grow the pool.
	dst := -1
	for i := range preEmpty {
		if preEmpty[i] {
			dst = i
			break
		}
	}
	if dst == -1 {
		s.regions = append(s.regions, newRegion(s.regionSize))
		dst = len(s.regions) - 1
	}
	d := s.regions[dst]

	// Uniform Fisher-Yates permutation of the survivors. Physical order
	// after compaction must carry no information about allocation order.
	for i := len(survivors) - 1; i > 0; i-- {
		j := shared.Intn(i + 1)
		survivors[i], survivors[j] = survivors[j], survivors[i]
	}

	for i, p := range survivors {
		data, err := d.alloc(s.alloc, p.e.size, p.e.align)
		if err != nil {
			// Reattach the entries not yet moved so every live handle
			// keeps exactly one region membership, then surface the
			// allocator failure unmodified.
			for _, q := range survivors[i:] {
				q.from.handles[q.e.handle] = struct{}{}
			}
			return err
		}
		copy(data, p.e.data)
		mem.Shred(p.e.data)
		p.e.data = data
		d.handles[p.e.handle] = struct{}{}
	}

	// Release every emptied region except the destination itself. The
	// region object stays in the pool for reuse; only its slabs go back
	// to the allocator.
	for i, r := range s.regions {
		if i != dst && r.empty() && len(r.slabs) > 0 {
			r.reset(s.alloc)
		}
	}

	s.current = dst
	return nil
}
