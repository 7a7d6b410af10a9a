package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mosaicnetworks/joiner/src/common"
)

// DigestLength is the size in bytes of a Digest.
const DigestLength = sha256.Size

// Digest is a SHA256 hash. It identifies blocks, deploys and global-state
// commitments.
type Digest [DigestLength]byte

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	hash := hasher.Sum(nil)
	return hash
}

// Hash returns the Digest of data.
func Hash(data []byte) Digest {
	return sha256.Sum256(data)
}

// HashAll returns the Digest of the concatenation of all the parts.
func HashAll(parts ...[]byte) Digest {
	hasher := sha256.New()
	for _, p := range parts {
		hasher.Write(p)
	}
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}

// DigestFromHex parses the hexadecimal representation of a Digest, with or
// without the 0x prefix. The input must be exactly DigestLength bytes once
// decoded.
func DigestFromHex(s string) (Digest, error) {
	var d Digest

	raw, err := common.DecodeFromString(s)
	if err != nil {
		return d, err
	}

	if len(raw) != DigestLength {
		return d, fmt.Errorf("invalid digest length: got %d bytes, want %d", len(raw), DigestLength)
	}

	copy(d[:], raw)

	return d, nil
}

// Bytes returns a copy of the digest as a byte slice.
func (d Digest) Bytes() []byte {
	b := make([]byte, DigestLength)
	copy(b, d[:])
	return b
}

// Hex returns the full lowercase hexadecimal representation.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether the digest is all zeroes.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns an abbreviated hex form, which is what shows up in logs.
func (d Digest) String() string {
	return hex.EncodeToString(d[:5])
}
