// Package keystream derives per-allocation XOR keystreams from a
// process-wide AES-256 key and 64-bit salt. Every allocation handle gets its
// own counter sequence, so no two allocations ever share keystream bytes,
// and the transform is symmetric: applying it to ciphertext restores the
// plaintext. This is confidentiality only: there is no integrity or tamper
// detection.
package keystream

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/Real-Fruit-Snacks/Riverbed/internal/shared"
	"github.com/Real-Fruit-Snacks/Riverbed/pkg/mem"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// Engine holds the process-wide key/salt pair and the block cipher keyed by
// them. It is not safe for concurrent use; the shuffler serializes every
// call under its own lock.
type Engine struct {
	key   [KeySize]byte
	salt  uint64
	block cipher.Block
}

// New creates an Engine. A nil key or salt is replaced with fresh
// crypto/rand material.
func New(key *[KeySize]byte, salt *uint64) (*Engine, error) {
	e := &Engine{}
	if err := e.Rekey(key, salt); err != nil {
		return nil, err
	}
	return e, nil
}

// Rekey installs new key material, shredding the previous key bytes. A nil
// key or salt means "draw a random one". On error the engine is unchanged
// and keeps transforming under the old material.
func (e *Engine) Rekey(key *[KeySize]byte, salt *uint64) error {
	var newKey [KeySize]byte
	if key != nil {
		newKey = *key
	} else {
		b, err := shared.Bytes(KeySize)
		if err != nil {
			return fmt.Errorf("keystream: key generation failed: %w", err)
		}
		copy(newKey[:], b)
		mem.Shred(b)
	}

	var newSalt uint64
	if salt != nil {
		newSalt = *salt
	} else {
		b, err := shared.Bytes(8)
		if err != nil {
			mem.Shred(newKey[:])
			return fmt.Errorf("keystream: salt generation failed: %w", err)
		}
		newSalt = binary.BigEndian.Uint64(b)
	}

	block, err := aes.NewCipher(newKey[:])
	if err != nil {
		mem.Shred(newKey[:])
		return fmt.Errorf("keystream: cipher init failed: %w", err)
	}

	mem.Shred(e.key[:])
	e.key = newKey
	e.salt = newSalt
	e.block = block
	return nil
}

// Apply XORs the handle-specific keystream over buf in place. The 16-byte
// counter block carries the salt in bytes 0-7 and the handle XORed with a
// per-call block counter in bytes 8-15, both big-endian. Applying the same
// transform twice restores the original bytes, so callers must track
// ciphertext state themselves; a double application against stale state
// corrupts the buffer.
func (e *Engine) Apply(handle uint64, buf []byte) {
	var ctr, ks [aes.BlockSize]byte
	binary.BigEndian.PutUint64(ctr[:8], e.salt)
	for block := uint64(0); len(buf) > 0; block++ {
		binary.BigEndian.PutUint64(ctr[8:], handle^block)
		e.block.Encrypt(ks[:], ctr[:])
		n := len(buf)
		if n > aes.BlockSize {
			n = aes.BlockSize
		}
		for i := 0; i < n; i++ {
			buf[i] ^= ks[i]
		}
		buf = buf[n:]
	}
	// Keystream bytes are as sensitive as the key; do not leave them on
	// the stack longer than needed.
	mem.Shred(ks[:])
}

// Destroy shreds the key. The engine is unusable afterward.
func (e *Engine) Destroy() {
	mem.Shred(e.key[:])
	e.salt = 0
	e.block = nil
}
