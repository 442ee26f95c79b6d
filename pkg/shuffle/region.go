package shuffle

import (
	"unsafe"

	"github.com/Real-Fruit-Snacks/Riverbed/pkg/mem"
)

// region is one bump-pointer pool plus the set of handles currently
// allocated from it. Backing memory comes from the shuffler's allocator in
// fixed-size slabs; the pool grows by appending slabs and the bump pointer
// only ever moves forward, so existing views stay valid until reset.
type region struct {
	slabs    [][]byte
	off      int // bump offset inside the last slab
	slabSize int

	handles map[Handle]struct{}
	stale   bool // membership shrank without reaching empty; informational only
}

func newRegion(slabSize int) *region {
	return &region{
		slabSize: slabSize,
		handles:  make(map[Handle]struct{}),
	}
}

func (r *region) empty() bool { return len(r.handles) == 0 }

// bytes reports how much slab memory the region currently holds from the
// backing allocator.
func (r *region) bytes() int {
	n := 0
	for _, slab := range r.slabs {
		n += len(slab)
	}
	return n
}

// alloc reserves size bytes aligned to align. It reserves align-1 extra
// bytes and shifts to the first aligned address inside the range, so the
// returned view satisfies the alignment regardless of where the bump
// pointer sits. The view is zeroed before return.
func (r *region) alloc(a mem.Allocator, size, align int) ([]byte, error) {
	need := size + align - 1
	if len(r.slabs) > 0 && r.off+need <= len(r.slabs[len(r.slabs)-1]) {
		return r.carve(size, align), nil
	}

	n := r.slabSize
	if need > n {
		n = need
	}
	slab, err := a.Allocate(n)
	if err != nil {
		return nil, err
	}
	r.slabs = append(r.slabs, slab)
	r.off = 0
	return r.carve(size, align), nil
}

// carve cuts the next size-byte aligned view out of the last slab. The
// caller has already checked that size+align-1 bytes fit past the bump
// offset.
func (r *region) carve(size, align int) []byte {
	slab := r.slabs[len(r.slabs)-1]
	addr := uintptr(unsafe.Pointer(&slab[r.off]))
	start := r.off + int(-addr&uintptr(align-1))
	end := start + size
	r.off = end

	out := slab[start:end:end]
	clear(out)
	return out
}

// reset releases every slab back to the allocator, which shreds it on the
// way out. Membership bookkeeping is the caller's responsibility;
// compaction only resets regions it has confirmed empty.
func (r *region) reset(a mem.Allocator) {
	for _, slab := range r.slabs {
		a.Free(slab)
	}
	r.slabs = nil
	r.off = 0
	r.stale = false
}
