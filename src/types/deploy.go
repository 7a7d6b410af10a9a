package types

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/joiner/src/crypto"
)

// DeployHash is the hash of a deploy's header.
type DeployHash crypto.Digest

// String ...
func (h DeployHash) String() string {
	return "deploy-hash " + crypto.Digest(h).String()
}

// Hex ...
func (h DeployHash) Hex() string {
	return crypto.Digest(h).Hex()
}

// DeployHeader carries the metadata of a deploy. Its hash identifies the
// deploy.
type DeployHeader struct {
	Account   string
	Timestamp Timestamp
	TTL       uint64
	GasPrice  uint64
	BodyHash  crypto.Digest
	ChainName string
}

// Deploy is a unit of work submitted by an account. Payment and Session are
// opaque to this node and only hashed.
type Deploy struct {
	Hash    DeployHash
	Header  DeployHeader
	Payment []byte
	Session []byte
}

// NewDeploy builds a deploy and computes its hashes.
func NewDeploy(account string, timestamp Timestamp, ttl, gasPrice uint64, chainName string, payment, session []byte) (*Deploy, error) {
	d := &Deploy{
		Header: DeployHeader{
			Account:   account,
			Timestamp: timestamp,
			TTL:       ttl,
			GasPrice:  gasPrice,
			BodyHash:  crypto.HashAll(payment, session),
			ChainName: chainName,
		},
		Payment: payment,
		Session: session,
	}
	hash, err := d.Header.hash()
	if err != nil {
		return nil, err
	}
	d.Hash = hash
	return d, nil
}

func (h *DeployHeader) hash() (DeployHash, error) {
	bytes, err := Encode(h)
	if err != nil {
		return DeployHash{}, err
	}
	return DeployHash(crypto.Hash(bytes)), nil
}

// Verify checks that the deploy's hashes match its contents.
func (d *Deploy) Verify() error {
	if crypto.HashAll(d.Payment, d.Session) != d.Header.BodyHash {
		return errors.New("deploy body hash mismatch")
	}
	hash, err := d.Header.hash()
	if err != nil {
		return err
	}
	if hash != d.Hash {
		return fmt.Errorf("deploy hash mismatch: claimed %s, computed %s", d.Hash, hash)
	}
	return nil
}

// String ...
func (d *Deploy) String() string {
	return fmt.Sprintf("deploy %s from %s", crypto.Digest(d.Hash), d.Header.Account)
}
