//go:build linux

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageAllocator serves buffers from anonymous mmap'd pages outside the Go
// heap. Each mapping is best-effort locked into RAM so region ciphertext
// never reaches swap, and marked MADV_DONTDUMP so the pages are excluded
// from any core dump the kernel might still produce.
type PageAllocator struct{}

// NewPageAllocator returns a page-backed Allocator.
func NewPageAllocator() *PageAllocator { return &PageAllocator{} }

// Allocate maps size bytes of zeroed anonymous memory.
func (a *PageAllocator) Allocate(size int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mem: mmap of %d bytes failed: %w (%w)", size, err, ErrOutOfMemory)
	}

	// Both calls are best-effort: RLIMIT_MEMLOCK may forbid locking and
	// older kernels lack MADV_DONTDUMP. The mapping is usable either way.
	_ = unix.Mlock(b)
	_ = unix.Madvise(b, unix.MADV_DONTDUMP)

	return b, nil
}

// Free shreds the mapping and returns it to the kernel.
func (a *PageAllocator) Free(b []byte) {
	if len(b) == 0 {
		return
	}
	Shred(b)
	_ = unix.Munmap(b)
}
