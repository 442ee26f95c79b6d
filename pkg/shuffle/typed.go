package shuffle

import (
	"fmt"
	"unsafe"
)

// Alloc reserves storage for a single value of type T, aligned for T.
func Alloc[T any](s *Shuffler) (Handle, error) {
	var z T
	return s.Allocate(int(unsafe.Sizeof(z)), int(unsafe.Alignof(z)), 1)
}

// AllocSlice reserves storage for n contiguous values of type T.
func AllocSlice[T any](s *Shuffler, n int) (Handle, error) {
	var z T
	return s.Allocate(int(unsafe.Sizeof(z)), int(unsafe.Alignof(z)), n)
}

// RentAs borrows the allocation as a typed pointer over the same bytes
// Rent would return. The pointer is a non-owning view, valid only until the
// matching Return; the recorded alignment guarantees it is properly aligned
// for T when the allocation was made with Alloc or AllocSlice of the same
// type. Panics on an unknown handle or when T does not fit the allocation.
func RentAs[T any](s *Shuffler, h Handle) *T {
	b := s.Rent(h)
	var z T
	if int(unsafe.Sizeof(z)) > len(b) {
		s.Return(h)
		panic(fmt.Sprintf("shuffle: rent of %d-byte type from %d-byte allocation", unsafe.Sizeof(z), len(b)))
	}
	return (*T)(unsafe.Pointer(&b[0]))
}
