package wiicrypto

import (
	"crypto/sha1" //nolint:gosec // SHA-1 is the Wii signature hash, not a choice
	"crypto/sha256"
	"hash"
)

// NewSHA1 and NewSHA256 are thin aliases kept so call sites in this
// package get their streaming hashes from one place rather than reaching
// into crypto/sha1 directly from half a dozen files.
func NewSHA1() hash.Hash   { return sha1.New() }
func NewSHA256() hash.Hash { return sha256.New() }

// SHA1Sum hashes b in one call.
func SHA1Sum(b []byte) [sha1.Size]byte { return sha1.Sum(b) }

// SHA256Sum hashes b in one call.
func SHA256Sum(b []byte) [sha256.Size]byte { return sha256.Sum256(b) }
