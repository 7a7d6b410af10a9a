// Package consensus implements the era supervisor: it follows the eras of the
// chain as linear-chain blocks are handed to it, signs votes on proposals
// when the node is a validator, and reports equivocations.
package consensus

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/joiner/src/components/chainspec"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// ErrNoValidators is returned when the era supervisor is given no stakes.
var ErrNoValidators = errors.New("consensus: empty validator set")

// EraSupervisor ...
type EraSupervisor struct {
	secretKey *btcec.PrivateKey
	publicKey string

	stakes     map[string]uint64
	totalStake uint64
	highway    chainspec.HighwayConfig

	currentEra     uint64
	eraStart       types.Timestamp
	eraStartHeight uint64
	nextHeight     uint64

	// deploys already included in linear-chain blocks
	pastDeploys map[types.DeployHash]struct{}

	// votes of the current era by creator
	votes map[string]Vote
	// stake behind each proto-block of the current era
	weights map[crypto.Digest]uint64
	faulty  map[string]struct{}

	logger *logrus.Entry
}

// NewEraSupervisor creates an era supervisor starting its first era at
// timestamp. The returned effects request the first proto-block and arm the
// era timer.
func NewEraSupervisor(
	timestamp types.Timestamp,
	conf config.ConsensusConfig,
	eb effect.Builder,
	stakes map[string]uint64,
	highway chainspec.HighwayConfig,
	rng *rand.Rand,
	logger *logrus.Entry,
) (*EraSupervisor, effect.Effects[Event], error) {
	if len(stakes) == 0 {
		return nil, nil, ErrNoValidators
	}

	sk, err := keys.NewSimpleKeyfile(conf.SecretKeyPath).ReadKey()
	if err != nil {
		return nil, nil, fmt.Errorf("reading validator key: %v", err)
	}

	if highway.EraDuration <= 0 {
		highway.EraDuration = chainspec.DefaultHighwayConfig().EraDuration
	}

	es := &EraSupervisor{
		secretKey:   sk,
		publicKey:   keys.PublicKeyHex(sk.PubKey()),
		stakes:      make(map[string]uint64, len(stakes)),
		highway:     highway,
		eraStart:    timestamp,
		pastDeploys: make(map[types.DeployHash]struct{}),
		votes:       make(map[string]Vote),
		weights:     make(map[crypto.Digest]uint64),
		faulty:      make(map[string]struct{}),
		logger:      logger.WithField("component", "consensus"),
	}
	for k, s := range stakes {
		es.stakes[k] = s
		es.totalStake += s
	}

	es.logger.WithFields(logrus.Fields{
		"public_key": es.publicKey,
		"validator":  es.IsValidator(),
		"validators": len(es.stakes),
		"stake":      es.totalStake,
	}).Info("Starting era supervisor")

	var effects effect.Effects[Event]
	effects = append(effects, es.requestProtoBlock(eb, rng)...)
	effects = append(effects, es.armTimer(eb)...)

	return es, effects, nil
}

// IsValidator reports whether our key is part of the validator set.
func (es *EraSupervisor) IsValidator() bool {
	_, ok := es.stakes[es.publicKey]
	return ok
}

// PublicKey returns the hex encoded public key of this node.
func (es *EraSupervisor) PublicKey() string {
	return es.publicKey
}

// CurrentEra ...
func (es *EraSupervisor) CurrentEra() uint64 {
	return es.currentEra
}

// NextHeight returns the height of the next linear-chain block expected.
func (es *EraSupervisor) NextHeight() uint64 {
	return es.nextHeight
}

// HandleEvent implements reactor.Component.
func (es *EraSupervisor) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Request:
		switch req := e.Request.(type) {
		case effect.HandleLinearChainBlockRequest:
			return es.handleLinearChainBlock(eb, req.Header)
		default:
			es.logger.WithField("request", req.String()).Error("Unknown consensus request")
			return nil
		}
	case Timer:
		if e.Era != es.currentEra {
			return nil
		}
		var effects effect.Effects[Event]
		effects = append(effects, es.requestProtoBlock(eb, rng)...)
		effects = append(effects, es.armTimer(eb)...)
		return effects
	case NewProtoBlock:
		return es.propose(eb, e)
	case MessageReceived:
		return es.handleMessage(eb, e)
	default:
		es.logger.WithField("event", ev.String()).Error("Unknown consensus event")
		return nil
	}
}

func (es *EraSupervisor) handleLinearChainBlock(eb effect.Builder, header *types.BlockHeader) effect.Effects[Event] {
	for _, h := range header.DeployHashes {
		es.pastDeploys[h] = struct{}{}
	}
	if header.Height >= es.nextHeight {
		es.nextHeight = header.Height + 1
	}

	if header.SwitchBlock && header.Era >= es.currentEra {
		es.newEra(header.Era+1, header.Timestamp, header.Height+1)
	}

	return effect.Ignore[Event](eb.AnnounceBlockHandled(header.Height))
}

func (es *EraSupervisor) newEra(era uint64, start types.Timestamp, startHeight uint64) {
	es.logger.WithFields(logrus.Fields{
		"era":          era,
		"start":        start,
		"start_height": startHeight,
	}).Info("New era")

	es.currentEra = era
	es.eraStart = start
	es.eraStartHeight = startHeight
	es.votes = make(map[string]Vote)
	es.weights = make(map[crypto.Digest]uint64)
}

func (es *EraSupervisor) requestProtoBlock(eb effect.Builder, rng *rand.Rand) effect.Effects[Event] {
	era := es.currentEra
	past := make(map[types.DeployHash]struct{}, len(es.pastDeploys))
	for h := range es.pastDeploys {
		past[h] = struct{}{}
	}
	random := rng.Intn(2) == 1
	return effect.Event(
		eb.RequestProtoBlock(types.Now(), past, random),
		func(p *types.ProtoBlock) Event { return NewProtoBlock{Era: era, ProtoBlock: p} },
	)
}

func (es *EraSupervisor) armTimer(eb effect.Builder) effect.Effects[Event] {
	era := es.currentEra
	return effect.Event(
		eb.SetTimeout(es.highway.EraDuration),
		func(_ time.Duration) Event { return Timer{Era: era} },
	)
}

func (es *EraSupervisor) propose(eb effect.Builder, e NewProtoBlock) effect.Effects[Event] {
	if e.ProtoBlock == nil || e.Era != es.currentEra || !es.IsValidator() {
		return nil
	}

	hash, err := e.ProtoBlock.Hash()
	if err != nil {
		es.logger.WithError(err).Error("Hashing proto-block")
		return nil
	}

	vote := Vote{Era: es.currentEra, ProtoBlock: hash, Creator: es.publicKey}
	if err := vote.Sign(es.secretKey); err != nil {
		es.logger.WithError(err).Error("Signing vote")
		return nil
	}
	payload, err := vote.Marshal()
	if err != nil {
		es.logger.WithError(err).Error("Encoding vote")
		return nil
	}
	es.addVote(vote)

	var effects effect.Effects[Event]
	effects = append(effects, effect.Ignore[Event](eb.Broadcast(protocol.NewConsensus(payload)))...)
	effects = append(effects, effect.Ignore[Event](eb.AnnounceConsensus(effect.Proposed{ProtoBlock: e.ProtoBlock}))...)
	return effects
}

func (es *EraSupervisor) handleMessage(eb effect.Builder, e MessageReceived) effect.Effects[Event] {
	var vote Vote
	if err := vote.Unmarshal(e.Payload); err != nil {
		es.logger.WithError(err).WithField("sender", e.Sender).Warn("Invalid consensus message")
		return nil
	}
	if vote.Era != es.currentEra {
		es.logger.WithFields(logrus.Fields{
			"sender": e.Sender,
			"era":    vote.Era,
		}).Debug("Vote for another era")
		return nil
	}
	if _, ok := es.stakes[vote.Creator]; !ok {
		es.logger.WithField("creator", vote.Creator).Warn("Vote from unknown validator")
		return nil
	}
	if ok, err := vote.Verify(); err != nil || !ok {
		es.logger.WithField("creator", vote.Creator).Warn("Vote with invalid signature")
		return nil
	}

	if prev, ok := es.votes[vote.Creator]; ok && prev.ProtoBlock != vote.ProtoBlock {
		if _, known := es.faulty[vote.Creator]; known {
			return nil
		}
		es.faulty[vote.Creator] = struct{}{}
		es.logger.WithFields(logrus.Fields{
			"creator": vote.Creator,
			"era":     vote.Era,
		}).Warn("Equivocation")
		return effect.Ignore[Event](eb.AnnounceConsensus(effect.Fault{Era: vote.Era, PublicKey: vote.Creator}))
	}

	es.addVote(vote)
	return nil
}

func (es *EraSupervisor) addVote(v Vote) {
	if _, ok := es.votes[v.Creator]; ok {
		return
	}
	es.votes[v.Creator] = v
	es.weights[v.ProtoBlock] += es.stakes[v.Creator]
}

// Weight returns the stake that voted for the proto-block in the current era.
func (es *EraSupervisor) Weight(protoBlock crypto.Digest) uint64 {
	return es.weights[protoBlock]
}
