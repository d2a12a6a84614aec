// Package hash computes the content hash this store uses to address
// stored blobs.
package hash

import (
	"encoding/binary"
	"encoding/hex"
	"errors"

	"github.com/zeebo/xxh3"
)

var errInvalidLength = errors.New("hash: decoded value is not 16 bytes")

// Size is the length in bytes of a Hash.
const Size = 16

// Algorithm is the name reported in the X-Hash-Algorithm response header.
const Algorithm = "xxhash3"

// Hash is a 128-bit, non-cryptographic content digest.
type Hash [Size]byte

// Compute returns the xxHash3-128 digest of data.
func Compute(data []byte) Hash {
	u := xxh3.Hash128(data)
	var h Hash
	binary.BigEndian.PutUint64(h[0:8], u.Hi)
	binary.BigEndian.PutUint64(h[8:16], u.Lo)
	return h
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns h as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// Parse decodes a hex-encoded hash string produced by String.
func Parse(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != Size {
		return h, errInvalidLength
	}
	copy(h[:], b)
	return h, nil
}
