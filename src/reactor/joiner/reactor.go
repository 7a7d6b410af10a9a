// Package joiner implements the reactor of the joining phase: the node
// connects to its bootstrap peers and catches up with the linear chain from a
// trusted block before handing its long-lived components over to the
// validator phase.
package joiner

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/components/blockexecutor"
	"github.com/mosaicnetworks/joiner/src/components/blockvalidator"
	"github.com/mosaicnetworks/joiner/src/components/consensus"
	"github.com/mosaicnetworks/joiner/src/components/contractruntime"
	"github.com/mosaicnetworks/joiner/src/components/fetcher"
	"github.com/mosaicnetworks/joiner/src/components/gossiper"
	"github.com/mosaicnetworks/joiner/src/components/linearchain"
	"github.com/mosaicnetworks/joiner/src/components/linearchainsync"
	"github.com/mosaicnetworks/joiner/src/components/network"
	"github.com/mosaicnetworks/joiner/src/components/storage"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/reactor"
	"github.com/mosaicnetworks/joiner/src/reactor/initializer"
	"github.com/mosaicnetworks/joiner/src/reactor/validator"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

type networkComponent interface {
	reactor.Component[network.Event]
	Finalize(ctx context.Context) error
}

type syncComponent interface {
	reactor.Component[linearchainsync.Event]
	IsSynced() bool
}

type linearChainComponent interface {
	reactor.Component[linearchain.Event]
	LinearChain() []*types.Block
}

// Reactor is the joiner reactor. It owns every component of the phase.
type Reactor struct {
	// handed over to the validator phase, linear chain aside
	handoff validator.InitConfig

	// the handed over components, as seen while joining
	storage         reactor.Component[storage.Event]
	contractRuntime reactor.Component[contractruntime.Event]
	consensus       reactor.Component[consensus.Event]

	// dropped at the end of the phase
	network              networkComponent
	addressGossiper      reactor.Component[gossiper.Event]
	linearChainSync      syncComponent
	blockFetcher         reactor.Component[blockFetcherEvent]
	blockByHeightFetcher reactor.Component[blockByHeightFetcherEvent]
	deployFetcher        reactor.Component[deployFetcherEvent]
	blockValidator       reactor.Component[blockvalidator.Event]
	blockExecutor        reactor.Component[blockexecutor.Event]
	linearChain          linearChainComponent

	// set by IntoValidatorConfig, with the record it returned
	joined *validator.InitConfig

	logger *logrus.Entry
}

// New builds the joiner from the state of the initializer. The returned
// effects are those of the network; the effects consensus asks for at
// creation are kept for the validator phase and never run here.
//
// A malformed trusted hash or a consensus failure aborts construction. The
// genesis post-state hash must have been computed by the initializer.
func New(initReactor *initializer.Reactor, eb effect.Builder, rng *rand.Rand) (*Reactor, effect.Effects[Event], error) {
	conf := initReactor.Config
	logger := conf.Logger()

	net, netEffects, err := network.New(eb, conf.Network, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("starting network: %v", err)
	}
	effects := effect.WrapEffects(toNetworkEvent, netEffects)

	abort := func(err error) (*Reactor, effect.Effects[Event], error) {
		if ferr := net.Finalize(context.Background()); ferr != nil {
			logger.WithError(ferr).Warn("Error closing network")
		}
		return nil, nil, err
	}

	timeout := conf.Gossip.GetRemainderTimeout

	blockFetcher := fetcher.New(fetcher.BlockKind(), timeout, logger)
	addressGossiper := gossiper.New(conf.Gossip, logger)

	var trustedHash *types.BlockHash
	if conf.Node.TrustedHash != "" {
		h, err := types.BlockHashFromHex(conf.Node.TrustedHash)
		if err != nil {
			return abort(fmt.Errorf("invalid trusted hash %q: %v", conf.Node.TrustedHash, err))
		}
		trustedHash = &h
	}
	linearChainSync := linearchainsync.New(trustedHash, logger)

	blockValidator := blockvalidator.New(logger)
	deployFetcher := fetcher.New(fetcher.DeployKind(), timeout, logger)
	blockByHeightFetcher := fetcher.New(fetcher.BlockByHeightKind(), timeout, logger)

	genesisPostState, ok := initReactor.Chainspec.GenesisPostStateHash()
	if !ok {
		panic("joiner: genesis post-state hash must be computed before joining")
	}
	blockExecutor := blockexecutor.New(genesisPostState, logger)

	linearChain := linearchain.New(logger)

	eraSupervisor, consensusEffects, err := consensus.NewEraSupervisor(
		types.Now(),
		conf.Consensus,
		eb,
		initReactor.Chainspec.GenesisValidatorStakes(),
		initReactor.Chainspec.Chainspec().Highway,
		rng,
		logger,
	)
	if err != nil {
		return abort(fmt.Errorf("creating consensus: %v", err))
	}

	r := &Reactor{
		handoff: validator.InitConfig{
			Chainspec:            initReactor.Chainspec,
			Config:               conf,
			ContractRuntime:      initReactor.ContractRuntime,
			Storage:              initReactor.Storage,
			Consensus:            eraSupervisor,
			InitConsensusEffects: consensusEffects,
		},
		storage:              initReactor.Storage,
		contractRuntime:      initReactor.ContractRuntime,
		consensus:            eraSupervisor,
		network:              net,
		addressGossiper:      addressGossiper,
		linearChainSync:      linearChainSync,
		blockFetcher:         blockFetcher,
		blockByHeightFetcher: blockByHeightFetcher,
		deployFetcher:        deployFetcher,
		blockValidator:       blockValidator,
		blockExecutor:        blockExecutor,
		linearChain:          linearChain,
		logger:               logger.WithField("reactor", "joiner"),
	}

	r.logger.WithFields(logrus.Fields{
		"node_id":      net.ID(),
		"trusted_hash": conf.Node.TrustedHash,
	}).Info("Joining")

	return r, effects, nil
}

// Constructor adapts New for reactor.NewRunner.
func Constructor(initReactor *initializer.Reactor) reactor.Constructor[Event, *Reactor] {
	return func(eb effect.Builder, rng *rand.Rand) (*Reactor, effect.Effects[Event], error) {
		return New(initReactor, eb, rng)
	}
}

// IsStopped reports whether the node caught up with the linear chain. It stays
// true once the reactor has been torn down.
func (r *Reactor) IsStopped() bool {
	if r.joined != nil {
		return true
	}
	return r.linearChainSync.IsSynced()
}
