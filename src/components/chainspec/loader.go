package chainspec

import (
	"github.com/mosaicnetworks/joiner/src/crypto"
)

// Loader holds the chainspec together with what was derived from it while the
// node initialised.
type Loader struct {
	chainspec            *Chainspec
	genesisPostStateHash *crypto.Digest
}

// NewLoader ...
func NewLoader(spec *Chainspec) *Loader {
	return &Loader{chainspec: spec}
}

// Chainspec ...
func (l *Loader) Chainspec() *Chainspec {
	return l.chainspec
}

// SetGenesisPostStateHash records the global state hash produced by
// committing genesis.
func (l *Loader) SetGenesisPostStateHash(hash crypto.Digest) {
	l.genesisPostStateHash = &hash
}

// GenesisPostStateHash returns the genesis global state hash, if genesis was
// committed.
func (l *Loader) GenesisPostStateHash() (crypto.Digest, bool) {
	if l.genesisPostStateHash == nil {
		return crypto.Digest{}, false
	}
	return *l.genesisPostStateHash, true
}

// GenesisValidatorStakes maps each genesis validator's public key to its
// stake.
func (l *Loader) GenesisValidatorStakes() map[string]uint64 {
	stakes := make(map[string]uint64, len(l.chainspec.Genesis.Validators))
	for _, v := range l.chainspec.Genesis.Validators {
		stakes[v.PublicKey] = v.Stake
	}
	return stakes
}
