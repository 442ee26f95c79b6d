package shuffle

// Stats is a point-in-time snapshot of shuffler occupancy.
type Stats struct {
	Regions      int // region objects in the pool, including empty ones kept for reuse
	StaleRegions int // regions whose membership shrank without emptying
	LiveEntries  int // allocations in the registry, including freed-but-unswept ones
	LiveBytes    int // sum of live entry sizes
	RegionBytes  int // slab bytes currently held from the backing allocator
}

// Stats returns a consistent snapshot taken under the shuffler lock.
func (s *Shuffler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Regions:     len(s.regions),
		LiveEntries: len(s.entries),
	}
	for _, e := range s.entries {
		st.LiveBytes += e.size
	}
	for _, r := range s.regions {
		st.RegionBytes += r.bytes()
		if r.stale {
			st.StaleRegions++
		}
	}
	return st
}
