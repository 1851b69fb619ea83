package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// Sum hashes raw bytes.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// SumString hashes a string.
func SumString(s string) Digest {
	return Sum([]byte(s))
}

// Combine builds a compound key: H( first || rest[0] || rest[1] ... ).
// Callers must pass rest in a deterministic order.
func Combine(first Digest, rest ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(first[:])
	for _, d := range rest {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest was never set.
func (d Digest) IsZero() bool {
	return d == Digest{}
}
