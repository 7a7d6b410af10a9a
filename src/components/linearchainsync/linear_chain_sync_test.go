package linearchainsync

import (
	"context"
	"math/rand"
	"testing"

	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// fakeNetwork serves blocks from a chain held by every peer and records the
// blocks handed to consensus.
type fakeNetwork struct {
	byHash   map[types.BlockHash]*types.Block
	byHeight map[uint64]*types.Block
	invalid  map[types.BlockHash]int
	only     map[types.BlockHash]types.NodeID
	handled  []uint64
	fetches  int
}

func (n *fakeNetwork) Schedule(ev interface{}, kind effect.QueueKind) {
	switch req := ev.(type) {
	case effect.FetcherRequest[types.BlockHash, *types.Block]:
		n.fetches++
		b, ok := n.byHash[req.ID]
		if holder, restricted := n.only[req.ID]; restricted && holder != req.Peer {
			b, ok = nil, false
		}
		req.Responder.Respond(effect.FetchResult[*types.Block]{
			Item:   b,
			Source: types.PeerSource(req.Peer),
			Found:  ok,
		})
	case effect.FetcherRequest[uint64, *types.BlockByHeight]:
		n.fetches++
		item := types.AbsentBlockByHeight(req.ID)
		if b, ok := n.byHeight[req.ID]; ok {
			item = types.NewBlockByHeight(b)
		}
		req.Responder.Respond(effect.FetchResult[*types.BlockByHeight]{
			Item:   item,
			Source: types.PeerSource(req.Peer),
			Found:  true,
		})
	case effect.BlockValidationRequest[*types.Block]:
		if n.invalid[req.Block.Hash] > 0 {
			n.invalid[req.Block.Hash]--
			req.Responder.Respond(false)
			return
		}
		req.Responder.Respond(true)
	case effect.ExecuteBlockRequest:
		req.Responder.Respond(req.Block)
	case effect.HandleLinearChainBlockRequest:
		n.handled = append(n.handled, req.Header.Height)
	}
}

func newFakeNetwork(t *testing.T, length int) (*fakeNetwork, []*types.Block) {
	n := &fakeNetwork{
		byHash:   make(map[types.BlockHash]*types.Block),
		byHeight: make(map[uint64]*types.Block),
		invalid:  make(map[types.BlockHash]int),
		only:     make(map[types.BlockHash]types.NodeID),
	}
	var chain []*types.Block
	var parent types.BlockHash
	for h := 0; h < length; h++ {
		b, err := types.NewBlock(parent, crypto.Hash([]byte{byte(h)}), &types.FinalizedBlock{
			Height: uint64(h),
		})
		if err != nil {
			t.Fatal(err)
		}
		n.byHash[b.Hash] = b
		n.byHeight[b.Height()] = b
		chain = append(chain, b)
		parent = b.Hash
	}
	return n, chain
}

func drive(l *LinearChainSync, eb effect.Builder, rng *rand.Rand, ev Event) {
	for _, eff := range l.HandleEvent(eb, rng, ev) {
		for _, next := range eff(context.Background()) {
			drive(l, eb, rng, next)
		}
	}
}

// settle plays the part of consensus, confirming every handed block.
func settle(l *LinearChainSync, n *fakeNetwork, eb effect.Builder, rng *rand.Rand) {
	for len(n.handled) > 0 {
		h := n.handled[0]
		n.handled = n.handled[1:]
		drive(l, eb, rng, BlockHandled{Height: h})
	}
}

func peer(b byte) types.NodeID {
	var id types.NodeID
	id[0] = b
	return id
}

func TestNoTrustedHash(t *testing.T) {
	l := New(nil, cm.NewTestEntry(t, cm.TestLogLevel))
	if !l.IsSynced() || l.State() != None {
		t.Fatal("tracker without a trusted hash should be synced")
	}

	n, _ := newFakeNetwork(t, 3)
	drive(l, effect.NewBuilder(n), rand.New(rand.NewSource(1)), NewPeerConnected{Peer: peer(1)})
	if n.fetches != 0 {
		t.Fatal("synced tracker should not fetch anything")
	}
}

func TestSyncTrustedHashAndDescendants(t *testing.T) {
	n, chain := newFakeNetwork(t, 6)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))

	trusted := chain[3].Hash
	l := New(&trusted, cm.NewTestEntry(t, cm.TestLogLevel))
	if l.IsSynced() {
		t.Fatal("tracker with a trusted hash should not start synced")
	}

	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})

	// ancestors are handed over oldest first
	if len(n.handled) != 1 || n.handled[0] != 0 {
		t.Fatalf("expected genesis child to be handed first, got %v", n.handled)
	}

	settle(l, n, eb, rng)

	if !l.IsSynced() || l.State() != Done {
		t.Fatalf("tracker should be done, state %s", l.State())
	}
	if l.Executed() != len(chain) {
		t.Fatalf("expected %d executed blocks, got %d", len(chain), l.Executed())
	}
}

func TestHandledForOtherHeightIgnored(t *testing.T) {
	n, chain := newFakeNetwork(t, 2)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))

	trusted := chain[1].Hash
	l := New(&trusted, cm.NewTestEntry(t, cm.TestLogLevel))
	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})

	if effects := l.HandleEvent(eb, rng, BlockHandled{Height: 7}); len(effects) != 0 {
		t.Fatalf("unexpected effects for a height we are not waiting for: %d", len(effects))
	}
	if l.Executed() != 0 {
		t.Fatal("no block should count as handled")
	}
}

func TestDuplicatePeer(t *testing.T) {
	n, chain := newFakeNetwork(t, 2)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))

	trusted := chain[1].Hash
	l := New(&trusted, cm.NewTestEntry(t, cm.TestLogLevel))
	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})
	fetches := n.fetches

	if effects := l.HandleEvent(eb, rng, NewPeerConnected{Peer: peer(1)}); len(effects) != 0 {
		t.Fatal("a known peer should not trigger anything")
	}
	if n.fetches != fetches {
		t.Fatal("a known peer should not trigger a fetch")
	}
}

func TestTrustedBlockUnknown(t *testing.T) {
	n, _ := newFakeNetwork(t, 2)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))

	unknown := types.BlockHash(crypto.Hash([]byte("unknown")))
	l := New(&unknown, cm.NewTestEntry(t, cm.TestLogLevel))
	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})
	drive(l, eb, rng, NewPeerConnected{Peer: peer(2)})

	if l.IsSynced() || l.State() != SyncingTrustedHash {
		t.Fatalf("tracker should keep waiting for the trusted block, state %s", l.State())
	}
	if n.fetches != 2 {
		t.Fatalf("each peer should have been asked once, got %d fetches", n.fetches)
	}
}

func TestInvalidBlockRevalidated(t *testing.T) {
	n, chain := newFakeNetwork(t, 1)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))
	n.invalid[chain[0].Hash] = 1

	trusted := chain[0].Hash
	l := New(&trusted, cm.NewTestEntry(t, cm.TestLogLevel))
	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})
	settle(l, n, eb, rng)

	if !l.IsSynced() || l.Executed() != 1 {
		t.Fatalf("block should be executed after a second validation, executed %d", l.Executed())
	}
}

func TestMissingAncestorResumedWithNewPeer(t *testing.T) {
	n, chain := newFakeNetwork(t, 4)
	eb := effect.NewBuilder(n)
	rng := rand.New(rand.NewSource(1))
	n.only[chain[2].Hash] = peer(2)

	trusted := chain[3].Hash
	l := New(&trusted, cm.NewTestEntry(t, cm.TestLogLevel))
	drive(l, eb, rng, NewPeerConnected{Peer: peer(1)})

	if l.IsSynced() || len(n.handled) != 0 {
		t.Fatal("first peer cannot serve the parent of the trusted block")
	}

	effects := l.HandleEvent(eb, rng, NewPeerConnected{Peer: peer(2)})
	if len(effects) != 1 {
		t.Fatalf("new peer should be asked for the missing parent, got %d effects", len(effects))
	}
	for _, next := range effects[0](context.Background()) {
		drive(l, eb, rng, next)
	}
	settle(l, n, eb, rng)

	if !l.IsSynced() || l.State() != Done {
		t.Fatalf("tracker should be done, state %s", l.State())
	}
	if l.Executed() != len(chain) {
		t.Fatalf("expected %d executed blocks, got %d", len(chain), l.Executed())
	}
}
