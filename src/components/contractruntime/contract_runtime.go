// Package contractruntime executes deploys against the global state.
//
// The global state is represented only by its commitment: executing a deploy
// on top of a pre-state yields the hash of the pre-state and the deploy hash.
// This is enough for every node to agree on the post-state of a block.
package contractruntime

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize is the number of execution outcomes kept in memory.
const DefaultCacheSize = 1000

// Event is the contract runtime's event type.
type Event struct {
	Request effect.ContractRuntimeRequest
}

// String ...
func (e Event) String() string {
	return fmt.Sprintf("contract runtime request: %s", e.Request)
}

// GenesisAccount is an account funded at genesis.
type GenesisAccount struct {
	PublicKey string
	Stake     uint64
}

// ContractRuntime is the contract runtime component.
type ContractRuntime struct {
	cache  *lru.Cache
	logger *logrus.Entry
}

// New ...
func New(cacheSize int, logger *logrus.Entry) (*ContractRuntime, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &ContractRuntime{
		cache:  cache,
		logger: logger.WithField("component", "contract_runtime"),
	}, nil
}

// CommitGenesis computes the genesis post-state: the commitment to the chain
// name, protocol version and genesis accounts, sorted by public key.
func (c *ContractRuntime) CommitGenesis(chainName, protocolVersion string, accounts []GenesisAccount) crypto.Digest {
	sorted := make([]GenesisAccount, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PublicKey < sorted[j].PublicKey })

	parts := [][]byte{[]byte("genesis"), []byte(chainName), []byte(protocolVersion)}
	for _, a := range sorted {
		stake := make([]byte, 8)
		binary.BigEndian.PutUint64(stake, a.Stake)
		parts = append(parts, []byte(a.PublicKey), stake)
	}

	post := crypto.HashAll(parts...)
	c.logger.WithFields(logrus.Fields{
		"chain":      chainName,
		"accounts":   len(sorted),
		"post_state": post,
	}).Info("Committed genesis")
	return post
}

// Execute applies deploys in order on top of preState.
func (c *ContractRuntime) Execute(preState crypto.Digest, deploys []*types.Deploy) types.ExecutionOutcome {
	key := cacheKey(preState, deploys)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(types.ExecutionOutcome)
	}

	outcome := types.ExecutionOutcome{
		PreStateHash: preState,
		Results:      make([]types.ExecutionResult, 0, len(deploys)),
	}

	state := preState
	for _, d := range deploys {
		state = crypto.HashAll(state[:], d.Hash[:])
		outcome.Results = append(outcome.Results, types.ExecutionResult{
			DeployHash:    d.Hash,
			PostStateHash: state,
			Cost:          uint64(len(d.Payment) + len(d.Session)),
		})
	}
	outcome.PostStateHash = state

	c.cache.Add(key, outcome)
	return outcome
}

// HandleEvent implements reactor.Component.
func (c *ContractRuntime) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch req := ev.Request.(type) {
	case effect.ExecuteRequest:
		return effect.Effects[Event]{
			func(ctx context.Context) []Event {
				outcome := c.Execute(req.PreState, req.Deploys)
				c.logger.WithField("outcome", outcome.String()).Debug("Executed deploys")
				req.Responder.Respond(outcome)
				return nil
			},
		}
	default:
		c.logger.WithField("request", fmt.Sprintf("%T", ev.Request)).Error("Unknown contract runtime request")
		return nil
	}
}

func cacheKey(preState crypto.Digest, deploys []*types.Deploy) crypto.Digest {
	parts := make([][]byte, 0, len(deploys)+1)
	parts = append(parts, preState[:])
	for _, d := range deploys {
		parts = append(parts, d.Hash[:])
	}
	return crypto.HashAll(parts...)
}
