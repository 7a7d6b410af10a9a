// Package validator holds what the joining phase hands over to the validator
// phase of the node.
package validator

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/components/chainspec"
	"github.com/mosaicnetworks/joiner/src/components/consensus"
	"github.com/mosaicnetworks/joiner/src/components/contractruntime"
	"github.com/mosaicnetworks/joiner/src/components/storage"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// InitConfig is the input of the validator reactor. Ownership of every
// component it references moves with it.
type InitConfig struct {
	Chainspec       *chainspec.Loader
	Config          *config.Config
	ContractRuntime *contractruntime.ContractRuntime
	Storage         *storage.Storage
	Consensus       *consensus.EraSupervisor

	// InitConsensusEffects are the effects returned when consensus was
	// created. They have not been run.
	InitConsensusEffects effect.Effects[consensus.Event]

	// LinearChain is a snapshot of the confirmed chain, oldest first.
	LinearChain []*types.Block
}

// Validate reports the first missing field. An empty linear chain is valid
// but must not be nil.
func (c *InitConfig) Validate() error {
	switch {
	case c.Chainspec == nil:
		return missing("chainspec")
	case c.Config == nil:
		return missing("config")
	case c.ContractRuntime == nil:
		return missing("contract runtime")
	case c.Storage == nil:
		return missing("storage")
	case c.Consensus == nil:
		return missing("consensus")
	case c.InitConsensusEffects == nil:
		return missing("initial consensus effects")
	case c.LinearChain == nil:
		return missing("linear chain")
	}
	return nil
}

func missing(field string) error {
	return fmt.Errorf("validator init config: missing %s", field)
}

// Fields summarizes the hand-off for logging.
func (c *InitConfig) Fields() logrus.Fields {
	fields := logrus.Fields{
		"consensus_effects": len(c.InitConsensusEffects),
		"linear_chain":      len(c.LinearChain),
	}
	if n := len(c.LinearChain); n > 0 {
		fields["highest_block"] = c.LinearChain[n-1].String()
	}
	if c.Consensus != nil {
		fields["era"] = c.Consensus.CurrentEra()
		fields["public_key"] = c.Consensus.PublicKey()
	}
	return fields
}
