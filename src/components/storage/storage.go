package storage

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Event is the storage component's event type. Requests are the only events;
// answers travel through their responders.
type Event struct {
	Request effect.StorageRequest
}

// String ...
func (e Event) String() string {
	return fmt.Sprintf("storage request: %s", e.Request)
}

// Storage is the storage component.
type Storage struct {
	store  Store
	logger *logrus.Entry
}

// New opens the store selected by conf: a BadgerStore when Persist is set,
// an InmemStore otherwise.
func New(conf config.StorageConfig, logger *logrus.Entry) (*Storage, error) {
	logger = logger.WithField("component", "storage")

	var store Store
	if conf.Persist {
		bs, err := NewBadgerStore(conf.CacheSize, conf.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("opening badger store in %s: %v", conf.Path, err)
		}
		logger.WithField("path", conf.Path).Info("Using badger store")
		store = bs
	} else {
		logger.Debug("Using in-memory store")
		store = NewInmemStore()
	}

	return NewWithStore(store, logger), nil
}

// NewWithStore wraps an existing store.
func NewWithStore(store Store, logger *logrus.Entry) *Storage {
	return &Storage{
		store:  store,
		logger: logger,
	}
}

// Store returns the underlying store.
func (s *Storage) Store() Store {
	return s.store
}

// Close closes the underlying store.
func (s *Storage) Close() error {
	return s.store.Close()
}

// HandleEvent implements reactor.Component. Every request yields exactly one
// effect, which runs the store operation and answers the responder. Missing
// items are answered with nil; other store errors are logged and answered
// the same way.
func (s *Storage) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	var run func()

	switch req := ev.Request.(type) {
	case effect.PutBlockRequest:
		run = func() {
			inserted, err := s.store.PutBlock(req.Block)
			s.logError(err, req)
			req.Responder.Respond(inserted)
		}
	case effect.GetBlockRequest:
		run = func() {
			block, err := s.store.GetBlock(req.Hash)
			s.logError(err, req)
			req.Responder.Respond(block)
		}
	case effect.GetBlockAtHeightRequest:
		run = func() {
			block, err := s.store.GetBlockAtHeight(req.Height)
			s.logError(err, req)
			req.Responder.Respond(block)
		}
	case effect.GetHighestBlockRequest:
		run = func() {
			block, err := s.store.GetHighestBlock()
			s.logError(err, req)
			req.Responder.Respond(block)
		}
	case effect.PutDeployRequest:
		run = func() {
			inserted, err := s.store.PutDeploy(req.Deploy)
			s.logError(err, req)
			req.Responder.Respond(inserted)
		}
	case effect.GetDeploysRequest:
		run = func() {
			deploys := make([]*types.Deploy, len(req.Hashes))
			for i, h := range req.Hashes {
				d, err := s.store.GetDeploy(h)
				s.logError(err, req)
				deploys[i] = d
			}
			req.Responder.Respond(deploys)
		}
	case effect.PutExecutionResultsRequest:
		run = func() {
			err := s.store.PutExecutionResults(req.BlockHash, req.Results)
			s.logError(err, req)
			req.Responder.Respond(struct{}{})
		}
	case effect.GetExecutionResultRequest:
		run = func() {
			result, err := s.store.GetExecutionResult(req.DeployHash)
			s.logError(err, req)
			req.Responder.Respond(result)
		}
	default:
		s.logger.WithField("request", fmt.Sprintf("%T", ev.Request)).Error("Unknown storage request")
		return nil
	}

	return effect.Effects[Event]{
		func(ctx context.Context) []Event {
			run()
			return nil
		},
	}
}

func (s *Storage) logError(err error, req effect.StorageRequest) {
	if err == nil || IsKind(err, NotFound) || IsKind(err, Empty) {
		return
	}
	s.logger.WithError(err).WithField("request", req.String()).Error("Storage request failed")
}
