package consensus

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/types"
)

// Vote is a validator's signed endorsement of a proto-block in an era.
type Vote struct {
	Era        uint64
	ProtoBlock crypto.Digest
	Creator    string
	Signature  []byte
}

func (v *Vote) signedBytes() ([]byte, error) {
	return types.Encode(struct {
		Era        uint64
		ProtoBlock crypto.Digest
		Creator    string
	}{v.Era, v.ProtoBlock, v.Creator})
}

func (v *Vote) digest() ([]byte, error) {
	raw, err := v.signedBytes()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(raw), nil
}

// Sign sets the signature of the vote.
func (v *Vote) Sign(sk *btcec.PrivateKey) error {
	d, err := v.digest()
	if err != nil {
		return err
	}
	sig, err := keys.Sign(sk, d)
	if err != nil {
		return err
	}
	v.Signature = sig
	return nil
}

// Verify checks the signature against the creator's public key.
func (v *Vote) Verify() (bool, error) {
	pub, err := keys.ParsePublicKeyHex(v.Creator)
	if err != nil {
		return false, err
	}
	d, err := v.digest()
	if err != nil {
		return false, err
	}
	return keys.Verify(pub, d, v.Signature), nil
}

// Marshal ...
func (v *Vote) Marshal() ([]byte, error) {
	return types.Encode(v)
}

// Unmarshal ...
func (v *Vote) Unmarshal(data []byte) error {
	return types.Decode(data, v)
}
