package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Fingerprint hashes an ordered sequence of cell values. Used for
// integrity checks that compare table content before and after a
// transformation touches unrelated columns.
func Fingerprint(cells []string) Hash {
	var data strings.Builder
	for _, c := range cells {
		data.WriteString(c)
		data.WriteByte(0x1f)
	}
	return NewHash([]byte(data.String()))
}
