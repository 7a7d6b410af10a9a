package joiner

import (
	"context"

	"github.com/mosaicnetworks/joiner/src/components/consensus"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/reactor/validator"
)

// IntoValidatorConfig ends the joining phase. The network is shut down and
// every component of the phase is dropped, except those the validator phase
// takes over. A failure to close the network is logged, not returned.
//
// Once called, the reactor refuses every event. Further calls return the
// same record without touching the components again.
func (r *Reactor) IntoValidatorConfig(ctx context.Context) *validator.InitConfig {
	if r.joined != nil {
		r.logger.Warn("Joiner already torn down")
		return r.joined
	}

	if err := r.network.Finalize(ctx); err != nil {
		r.logger.WithError(err).Warn("Error finalizing network")
	}

	conf := r.handoff
	if conf.InitConsensusEffects == nil {
		conf.InitConsensusEffects = effect.Effects[consensus.Event]{}
	}
	conf.LinearChain = r.linearChain.LinearChain()

	r.joined = &conf
	r.handoff = validator.InitConfig{}

	r.storage = nil
	r.contractRuntime = nil
	r.consensus = nil
	r.network = nil
	r.addressGossiper = nil
	r.linearChainSync = nil
	r.blockFetcher = nil
	r.blockByHeightFetcher = nil
	r.deployFetcher = nil
	r.blockValidator = nil
	r.blockExecutor = nil
	r.linearChain = nil

	r.logger.WithFields(conf.Fields()).Info("Joined")

	return r.joined
}
