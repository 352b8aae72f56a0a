// Package fingerprint computes fixed-size content digests used for cheap
// equality and membership checks on frames and text lines.
package fingerprint

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// Size is the digest length in bytes.
const Size = 16

// Sum is a 128-bit xxh3 digest. The zero value means "no fingerprint".
type Sum [Size]byte

// Of fingerprints a byte sequence. Total over any input, including nil.
func Of(b []byte) Sum {
	return Sum(xxh3.Hash128(b).Bytes())
}

// OfString fingerprints a string without copying it.
func OfString(s string) Sum {
	return Sum(xxh3.HashString128(s).Bytes())
}

// IsZero reports whether s is the zero value.
func (s Sum) IsZero() bool { return s == Sum{} }

func (s Sum) String() string { return hex.EncodeToString(s[:]) }

// Short returns the first 8 hex characters, for logs.
func (s Sum) Short() string { return s.String()[:8] }
