package keys

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
)

// SecretKeyLength is the size in bytes of a raw secret key.
const SecretKeyLength = 32

var errInvalidSignature = errors.New("invalid signature encoding")

// GenerateKey creates a new secp256k1 secret key.
func GenerateKey() (*btcec.PrivateKey, error) {
	return btcec.NewPrivateKey(btcec.S256())
}

// DumpSecretKey exports the raw 32-byte scalar of a secret key.
func DumpSecretKey(sk *btcec.PrivateKey) []byte {
	if sk == nil {
		return nil
	}
	return sk.Serialize()
}

// ParseSecretKey rebuilds a secret key from the raw scalar produced by
// DumpSecretKey.
func ParseSecretKey(raw []byte) (*btcec.PrivateKey, error) {
	if len(raw) != SecretKeyLength {
		return nil, fmt.Errorf("invalid secret key length: got %d bytes, want %d", len(raw), SecretKeyLength)
	}

	sk, _ := btcec.PrivKeyFromBytes(btcec.S256(), raw)

	// The scalar must be in [1, N-1].
	if sk.D.Sign() <= 0 || sk.D.Cmp(btcec.S256().N) >= 0 {
		return nil, errors.New("invalid secret key: scalar out of range")
	}

	return sk, nil
}

// PublicKeyBytes returns the compressed encoding of a public key.
func PublicKeyBytes(pub *btcec.PublicKey) []byte {
	if pub == nil {
		return nil
	}
	return pub.SerializeCompressed()
}

// PublicKeyHex returns the lowercase hex of the compressed public key. This is
// the form used as key in the chainspec stake table.
func PublicKeyHex(pub *btcec.PublicKey) string {
	return hex.EncodeToString(PublicKeyBytes(pub))
}

// ParsePublicKey parses a compressed or uncompressed public key.
func ParsePublicKey(raw []byte) (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(raw, btcec.S256())
}

// ParsePublicKeyHex parses the output of PublicKeyHex.
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ParsePublicKey(raw)
}

// Sign signs a 32-byte digest and returns the DER-encoded signature.
func Sign(sk *btcec.PrivateKey, digest []byte) ([]byte, error) {
	sig, err := sk.Sign(digest)
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks a DER-encoded signature over digest against pub.
func Verify(pub *btcec.PublicKey, digest []byte, sig []byte) bool {
	if pub == nil || len(sig) == 0 {
		return false
	}
	parsed, err := btcec.ParseDERSignature(sig, btcec.S256())
	if err != nil {
		return false
	}
	return parsed.Verify(digest, pub)
}

// DecodeSignatureHex is a helper for signatures carried as hex strings in
// configuration files.
func DecodeSignatureHex(s string) ([]byte, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, errInvalidSignature
	}
	return raw, nil
}
