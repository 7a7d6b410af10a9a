package storage

import (
	"context"
	"math/rand"
	"testing"
	"time"

	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// directScheduler hands requests straight to the storage component and runs
// the resulting effects inline.
type directScheduler struct {
	storage *Storage
}

func (d *directScheduler) Schedule(ev interface{}, kind effect.QueueKind) {
	req, ok := ev.(effect.StorageRequest)
	if !ok {
		return
	}
	eb := effect.NewBuilder(d)
	for _, eff := range d.storage.HandleEvent(eb, nil, Event{Request: req}) {
		eff(context.Background())
	}
}

func TestStorageAnswersRequests(t *testing.T) {
	storage := NewWithStore(NewInmemStore(), cm.NewTestEntry(t, cm.TestLogLevel))
	eb := effect.NewBuilder(&directScheduler{storage: storage})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	chain := createTestChain(t, 2)
	for _, b := range chain {
		inserted, err := eb.PutBlock(b)(ctx)
		if err != nil || !inserted {
			t.Fatalf("block should be inserted: %v", err)
		}
	}

	block, err := eb.GetBlockAtHeight(1)(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if block == nil || block.Hash != chain[1].Hash {
		t.Fatalf("expected %s, got %v", chain[1].Hash, block)
	}

	missing, err := eb.GetBlockAtHeight(5)(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Fatalf("missing block should be answered with nil, got %s", missing)
	}

	deploy := createTestDeploy(t, "s")
	if _, err := eb.PutDeploy(deploy)(ctx); err != nil {
		t.Fatal(err)
	}
	deploys, err := eb.GetDeploys([]types.DeployHash{deploy.Hash, {}})(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(deploys) != 2 || deploys[0] == nil || deploys[1] != nil {
		t.Fatalf("expected the stored deploy and a nil entry, got %v", deploys)
	}
}

func TestStorageOneEffectPerRequest(t *testing.T) {
	storage := NewWithStore(NewInmemStore(), cm.NewTestEntry(t, cm.TestLogLevel))

	r := effect.NewResponder[*types.Block]()
	effects := storage.HandleEvent(effect.Builder{}, rand.New(rand.NewSource(0)), Event{
		Request: effect.GetHighestBlockRequest{Responder: r},
	})
	if len(effects) != 1 {
		t.Fatalf("expected one effect, got %d", len(effects))
	}

	if evs := effects[0](context.Background()); len(evs) != 0 {
		t.Fatalf("storage effects should not produce events, got %v", evs)
	}

	block, err := r.Wait(context.Background())
	if err != nil || block != nil {
		t.Fatalf("empty store should answer nil, got %v (%v)", block, err)
	}
}
