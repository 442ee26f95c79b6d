//go:build !linux

package mem

// PageAllocator falls back to the Go heap on platforms without the mmap,
// mlock, and madvise hardening path.
type PageAllocator struct {
	HeapAllocator
}

// NewPageAllocator returns the fallback heap-backed Allocator.
func NewPageAllocator() *PageAllocator { return &PageAllocator{} }
