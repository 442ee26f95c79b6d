// Package shared provides crypto/rand backed randomness helpers used across
// the library. All randomness in this module comes from the cryptographic
// source; predictable handles or shuffle orders would undercut the
// anti-forensics goal.
package shared

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// Uint64 draws a uniform 64-bit value from crypto/rand. A read failure is
// ignored the same way jittered-sleep code ignores it: crypto/rand on a
// running system does not fail in practice, and a zero draw is still a
// valid (if non-random) value for permutation purposes. Callers that need
// the error must use Bytes.
func Uint64() uint64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}

// Intn returns a uniform value in [0, n) without modulo bias.
func Intn(n int) int {
	if n <= 1 {
		return 0
	}
	limit := math.MaxUint64 - math.MaxUint64%uint64(n)
	for {
		if v := Uint64(); v < limit {
			return int(v % uint64(n))
		}
	}
}

// Bytes fills a fresh n-byte slice from crypto/rand, propagating any
// read failure. Used for key and salt material, where silent degradation
// is not acceptable.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := crand.Read(b); err != nil {
		return nil, fmt.Errorf("shared: crypto/rand failed: %w", err)
	}
	return b, nil
}
