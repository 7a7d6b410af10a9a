// Package initializer prepares what every phase of the node needs: the
// chainspec, storage and the contract runtime with genesis committed.
package initializer

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/components/chainspec"
	"github.com/mosaicnetworks/joiner/src/components/contractruntime"
	"github.com/mosaicnetworks/joiner/src/components/storage"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/sirupsen/logrus"
)

// Reactor is the state produced by the initializer and consumed by the
// joiner.
type Reactor struct {
	Config          *config.Config
	Chainspec       *chainspec.Loader
	Storage         *storage.Storage
	ContractRuntime *contractruntime.ContractRuntime
}

// New loads the chainspec named by the configuration and initializes the
// node's long-lived components.
func New(conf *config.Config) (*Reactor, error) {
	spec, err := chainspec.Load(conf.Node.ChainspecPath)
	if err != nil {
		return nil, err
	}
	return NewWithChainspec(conf, spec)
}

// NewWithChainspec is like New with an already loaded chainspec.
func NewWithChainspec(conf *config.Config, spec *chainspec.Chainspec) (*Reactor, error) {
	logger := conf.Logger()

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.New(conf.Storage, logger)
	if err != nil {
		return nil, err
	}

	runtime, err := contractruntime.New(conf.Storage.CacheSize, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating contract runtime: %v", err)
	}

	accounts := make([]contractruntime.GenesisAccount, len(spec.Genesis.Validators))
	for i, v := range spec.Genesis.Validators {
		accounts[i] = contractruntime.GenesisAccount{PublicKey: v.PublicKey, Stake: v.Stake}
	}

	loader := chainspec.NewLoader(spec)
	loader.SetGenesisPostStateHash(runtime.CommitGenesis(
		spec.Genesis.Name,
		spec.Genesis.ProtocolVersion,
		accounts,
	))

	logger.WithFields(logrus.Fields{
		"chain":      spec.Genesis.Name,
		"validators": len(spec.Genesis.Validators),
		"store":      store.Store().StorePath(),
	}).Info("Initialized")

	return &Reactor{
		Config:          conf,
		Chainspec:       loader,
		Storage:         store,
		ContractRuntime: runtime,
	}, nil
}
