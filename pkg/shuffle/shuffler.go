package shuffle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Real-Fruit-Snacks/Riverbed/pkg/keystream"
	"github.com/Real-Fruit-Snacks/Riverbed/pkg/mem"
)

// DefaultRegionSize is the slab size new regions request from the backing
// allocator when WithRegionSize is not given.
const DefaultRegionSize = 64 << 10

var (
	// ErrOutOfMemory reports that the backing allocator could not satisfy
	// a request. It is the allocator's own sentinel, re-exported so callers
	// only need this package for errors.Is checks.
	ErrOutOfMemory = mem.ErrOutOfMemory

	// ErrInvalidArgument reports a zero-sized or otherwise malformed
	// allocation request. This is a caller programming error; it is
	// returned rather than aborted so generic code can surface it.
	ErrInvalidArgument = errors.New("shuffle: invalid argument")
)

// Shuffler owns a set of regions and the registry of live allocations
// inside them. All public methods are safe for concurrent use; a single
// mutex serializes them, so every operation is atomic relative to every
// other, including compaction and key rotation.
type Shuffler struct {
	mu sync.Mutex

	entries map[Handle]*entry
	regions []*region
	current int // index of the preferred allocation target, -1 when none

	eng         *keystream.Engine
	alloc       mem.Allocator
	regionSize  int
	autoShuffle bool
}

type config struct {
	alloc       mem.Allocator
	regionSize  int
	autoShuffle bool
	key         *[keystream.KeySize]byte
	salt        *uint64
}

// Option configures a Shuffler at construction time.
type Option func(*config)

// WithAllocator sets the backing allocator. The default is the Go heap;
// mem.NewPageAllocator gives mmap-backed regions that stay out of swap and
// core dumps on linux.
func WithAllocator(a mem.Allocator) Option {
	return func(c *config) { c.alloc = a }
}

// WithRegionSize sets the slab size, in bytes, that regions request from
// the backing allocator. Allocations larger than this get a dedicated slab.
func WithRegionSize(n int) Option {
	return func(c *config) { c.regionSize = n }
}

// WithAutoShuffle enables compaction around every Rent and Return, so the
// physical layout churns continuously instead of only on explicit Shuffle
// calls.
func WithAutoShuffle(on bool) Option {
	return func(c *config) { c.autoShuffle = on }
}

// WithKey pins the encryption key and salt instead of drawing random ones.
// Intended for tests and deterministic replay; production callers should
// let New draw from crypto/rand.
func WithKey(key [keystream.KeySize]byte, salt uint64) Option {
	return func(c *config) {
		k := key
		s := salt
		c.key = &k
		c.salt = &s
	}
}

// New creates a Shuffler. Unless overridden by options, it uses the Go heap
// as backing allocator and a crypto/rand key and salt.
func New(opts ...Option) (*Shuffler, error) {
	cfg := config{regionSize: DefaultRegionSize}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.regionSize <= 0 {
		return nil, fmt.Errorf("shuffle: region size %d: %w", cfg.regionSize, ErrInvalidArgument)
	}
	if cfg.alloc == nil {
		cfg.alloc = mem.NewHeapAllocator()
	}

	eng, err := keystream.New(cfg.key, cfg.salt)
	if err != nil {
		return nil, err
	}

	return &Shuffler{
		entries:     make(map[Handle]*entry),
		current:     -1,
		eng:         eng,
		alloc:       cfg.alloc,
		regionSize:  cfg.regionSize,
		autoShuffle: cfg.autoShuffle,
	}, nil
}

// Destroy releases every region's memory back to the backing allocator and
// shreds the key material. All handles become invalid and the shuffler is
// unusable afterward.
func (s *Shuffler) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.regions {
		r.reset(s.alloc)
		r.handles = nil
	}
	s.regions = nil
	s.entries = make(map[Handle]*entry)
	s.current = -1
	s.eng.Destroy()
}

// currentRegion returns the preferred allocation target, creating the first
// region on demand. Callers must hold s.mu.
func (s *Shuffler) currentRegion() *region {
	if s.current < 0 || s.current >= len(s.regions) {
		s.regions = append(s.regions, newRegion(s.regionSize))
		s.current = len(s.regions) - 1
	}
	return s.regions[s.current]
}

// Allocate reserves count*size bytes aligned to align and returns the
// handle of the new allocation. The bytes start zeroed and are immediately
// encrypted at rest; the first Rent hands out a zeroed plaintext view.
// Fails with ErrInvalidArgument on a zero size or count or a non-power-of-
// two alignment, and with ErrOutOfMemory when the backing allocator cannot
// satisfy the request.
func (s *Shuffler) Allocate(size, align, count int) (Handle, error) {
	if size <= 0 || count <= 0 {
		return InvalidHandle, fmt.Errorf("shuffle: allocation of %d x %d bytes: %w", count, size, ErrInvalidArgument)
	}
	if align <= 0 || align&(align-1) != 0 {
		return InvalidHandle, fmt.Errorf("shuffle: alignment %d is not a power of two: %w", align, ErrInvalidArgument)
	}
	total := size * count
	if total/count != size {
		return InvalidHandle, fmt.Errorf("shuffle: allocation of %d x %d bytes overflows: %w", count, size, ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.currentRegion()
	data, err := r.alloc(s.alloc, total, align)
	if err != nil {
		return InvalidHandle, err
	}

	h := s.issueHandle()
	e := &entry{
		data:   data,
		size:   total,
		align:  align,
		handle: h,
	}

	// Encrypt at rest from the very first moment; the window between
	// allocation and first borrow is not special.
	s.eng.Apply(uint64(h), e.data)
	e.encrypted = true

	s.entries[h] = e
	r.handles[h] = struct{}{}
	return h, nil
}

// Free marks h for removal at the next compaction that finds it unlocked.
// The bytes stay in place (encrypted) until then. Unknown handles are
// ignored.
func (s *Shuffler) Free(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[h]; ok {
		e.toClear = true
	}
}

// Rent borrows the allocation as a plaintext byte view. The view aliases
// the entry's storage and is valid only until the matching Return; while
// borrowed, the entry is locked and immune to relocation, removal, and key
// rotation. Renting the same handle twice without returning it is a caller
// contract violation. Panics on an unknown handle.
func (s *Shuffler) Rent(h Handle) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.autoShuffle {
		// Opportunistic: an allocator failure here leaves the heap merely
		// un-compacted, never inconsistent, so the borrow proceeds.
		_ = s.compact()
	}

	e, ok := s.entries[h]
	if !ok {
		panic(fmt.Sprintf("shuffle: rent of unknown handle %#x", uint64(h)))
	}

	e.locked = true
	if e.encrypted {
		s.eng.Apply(uint64(h), e.data)
		e.encrypted = false
	}
	return e.data
}

// Return ends the borrow window: the bytes are re-encrypted in place and
// the entry becomes eligible for relocation again. No-op on an unknown
// handle, so Return after Free+Shuffle is always safe.
func (s *Shuffler) Return(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[h]
	if !ok {
		return
	}

	if !e.encrypted {
		s.eng.Apply(uint64(h), e.data)
		e.encrypted = true
	}
	e.locked = false

	if s.autoShuffle {
		_ = s.compact()
	}
}

// Size returns the allocation's byte length. Panics on an unknown handle.
func (s *Shuffler) Size(h Handle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[h]
	if !ok {
		panic(fmt.Sprintf("shuffle: size of unknown handle %#x", uint64(h)))
	}
	return e.size
}

// Valid reports whether h refers to a live allocation.
func (s *Shuffler) Valid(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[h]
	return ok
}

// SetAutoShuffle toggles compaction around every Rent and Return.
func (s *Shuffler) SetAutoShuffle(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoShuffle = on
}

// Shuffle runs one explicit compaction pass. Fails only with
// ErrOutOfMemory, in which case every live handle still has exactly one
// region membership and all data is intact.
func (s *Shuffler) Shuffle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compact()
}

// RotateKey swaps the process-wide key and salt. A nil key or salt means
// "draw a random one". Every encrypted entry is decrypted under the old
// material and re-encrypted under the new; locked entries are already
// plaintext and are left untouched, consistent with the borrow contract.
// The whole rotation runs under the shuffler lock, so it is atomic with
// respect to every other operation.
func (s *Shuffler) RotateKey(key *[keystream.KeySize]byte, salt *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var touched []*entry
	for _, e := range s.entries {
		if e.encrypted {
			s.eng.Apply(uint64(e.handle), e.data)
			e.encrypted = false
			touched = append(touched, e)
		}
	}

	if err := s.eng.Rekey(key, salt); err != nil {
		// The engine still holds the old material; re-encrypt under it so
		// nothing is left plaintext at rest.
		for _, e := range touched {
			s.eng.Apply(uint64(e.handle), e.data)
			e.encrypted = true
		}
		return err
	}

	for _, e := range touched {
		s.eng.Apply(uint64(e.handle), e.data)
		e.encrypted = true
	}
	return nil
}
