// Package blockvalidator checks that every deploy a block references can be
// obtained, fetching missing deploys from the peer that sent the block.
package blockvalidator

import (
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Event is the block validator's event type.
type Event interface {
	fmt.Stringer
	isBlockValidatorEvent()
}

// Request asks for a block to be validated.
type Request struct {
	effect.BlockValidationRequest[*types.Block]
}

// DeployFetched carries the outcome of fetching one deploy of a block.
type DeployFetched struct {
	Block  types.BlockHash
	Deploy types.DeployHash
	Found  bool
}

func (Request) isBlockValidatorEvent()       {}
func (DeployFetched) isBlockValidatorEvent() {}

func (e Request) String() string {
	return e.BlockValidationRequest.String()
}

func (e DeployFetched) String() string {
	return fmt.Sprintf("%s of %s fetched: %t", e.Deploy, e.Block, e.Found)
}

type job struct {
	missing    map[types.DeployHash]struct{}
	responders []effect.Responder[bool]
}

// BlockValidator validates blocks. Concurrent requests for the same block
// share one job.
type BlockValidator struct {
	jobs   map[types.BlockHash]*job
	logger *logrus.Entry
}

// New ...
func New(logger *logrus.Entry) *BlockValidator {
	return &BlockValidator{
		jobs:   make(map[types.BlockHash]*job),
		logger: logger.WithField("component", "block_validator"),
	}
}

// HandleEvent implements reactor.Component.
func (v *BlockValidator) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Request:
		return v.validate(eb, e)
	case DeployFetched:
		v.deployFetched(e)
		return nil
	default:
		v.logger.WithField("event", ev.String()).Error("Unknown block validator event")
		return nil
	}
}

func (v *BlockValidator) validate(eb effect.Builder, req Request) effect.Effects[Event] {
	block := req.Block

	if j, ok := v.jobs[block.Hash]; ok {
		j.responders = append(j.responders, req.Responder)
		return nil
	}

	if len(block.Header.DeployHashes) == 0 {
		req.Responder.Respond(true)
		return nil
	}

	j := &job{
		missing:    make(map[types.DeployHash]struct{}),
		responders: []effect.Responder[bool]{req.Responder},
	}
	v.jobs[block.Hash] = j

	var effects effect.Effects[Event]
	for _, dh := range block.Header.DeployHashes {
		if _, ok := j.missing[dh]; ok {
			continue
		}
		j.missing[dh] = struct{}{}

		blockHash, deployHash := block.Hash, dh
		effects = append(effects, effect.Event(
			eb.FetchDeploy(dh, req.Sender),
			func(r effect.FetchResult[*types.Deploy]) Event {
				return DeployFetched{Block: blockHash, Deploy: deployHash, Found: r.Found}
			},
		)...)
	}

	v.logger.WithFields(logrus.Fields{
		"block":   block.Hash,
		"deploys": len(j.missing),
	}).Debug("Validating block")

	return effects
}

func (v *BlockValidator) deployFetched(e DeployFetched) {
	j, ok := v.jobs[e.Block]
	if !ok {
		return
	}

	if !e.Found {
		v.logger.WithFields(logrus.Fields{
			"block":  e.Block,
			"deploy": e.Deploy,
		}).Warn("Could not fetch deploy, block invalid")
		v.finish(e.Block, j, false)
		return
	}

	delete(j.missing, e.Deploy)
	if len(j.missing) == 0 {
		v.finish(e.Block, j, true)
	}
}

func (v *BlockValidator) finish(hash types.BlockHash, j *job, valid bool) {
	for _, r := range j.responders {
		r.Respond(valid)
	}
	delete(v.jobs, hash)
}
