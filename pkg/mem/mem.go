// Package mem supplies the raw backing memory for the shuffling heap: a
// pluggable allocator interface, a Go-heap implementation, a page-backed
// implementation hardened against swap and core dumps, and deterministic
// shredding of released buffers.
package mem

import "errors"

// ErrOutOfMemory reports that the backing allocator could not satisfy a
// request. It propagates to the caller unmodified; nothing in this module
// retries on its behalf.
var ErrOutOfMemory = errors.New("mem: out of memory")

// Allocator supplies raw backing memory and accepts bulk release. Allocate
// returns a zeroed slice with len == size. Free must tolerate only slices
// previously returned by the same allocator's Allocate; implementations
// shred the contents before releasing them.
type Allocator interface {
	Allocate(size int) ([]byte, error)
	Free(b []byte)
}

// HeapAllocator serves buffers from the Go heap. Free shreds the contents;
// the runtime reclaims the backing array once the last reference drops.
type HeapAllocator struct{}

// NewHeapAllocator returns a heap-backed Allocator.
func NewHeapAllocator() *HeapAllocator { return &HeapAllocator{} }

// Allocate returns a zeroed size-byte slice from the Go heap.
func (a *HeapAllocator) Allocate(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Free shreds b. The memory itself is reclaimed by the garbage collector.
func (a *HeapAllocator) Free(b []byte) {
	Shred(b)
}
