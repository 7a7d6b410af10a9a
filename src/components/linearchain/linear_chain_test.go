package linearchain

import (
	"context"
	"testing"

	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

type fakeNode struct {
	blocks map[uint64]*types.Block
	puts   int
	sent   []effect.SendMessageRequest
}

func (n *fakeNode) Schedule(ev interface{}, kind effect.QueueKind) {
	switch req := ev.(type) {
	case effect.PutBlockRequest:
		n.puts++
		req.Responder.Respond(true)
	case effect.PutExecutionResultsRequest:
		req.Responder.Respond(struct{}{})
	case effect.GetBlockAtHeightRequest:
		req.Responder.Respond(n.blocks[req.Height])
	case effect.SendMessageRequest:
		n.sent = append(n.sent, req)
		req.Responder.Respond(struct{}{})
	}
}

func run(effects effect.Effects[Event]) {
	for _, eff := range effects {
		eff(context.Background())
	}
}

func TestAppendAndSnapshot(t *testing.T) {
	n := &fakeNode{}
	eb := effect.NewBuilder(n)
	l := New(cm.NewTestEntry(t, cm.TestLogLevel))

	b0, _ := types.NewBlock(types.BlockHash{}, crypto.Digest{}, &types.FinalizedBlock{Height: 0})
	b1, _ := types.NewBlock(b0.Hash, crypto.Digest{}, &types.FinalizedBlock{Height: 1})

	run(l.HandleEvent(eb, nil, NewLinearChainBlock{Block: b0}))
	run(l.HandleEvent(eb, nil, NewLinearChainBlock{Block: b1}))

	snapshot := l.LinearChain()
	if len(snapshot) != 2 || snapshot[1].Hash != b1.Hash {
		t.Fatalf("unexpected chain %v", snapshot)
	}
	if n.puts != 2 {
		t.Fatalf("each block should be stored, %d puts", n.puts)
	}

	snapshot[0] = nil
	if l.LinearChain()[0] == nil {
		t.Fatal("snapshot should be a copy")
	}
}

func TestServeBlockAtHeight(t *testing.T) {
	b0, _ := types.NewBlock(types.BlockHash{}, crypto.Digest{}, &types.FinalizedBlock{Height: 0})
	n := &fakeNode{blocks: map[uint64]*types.Block{0: b0}}
	eb := effect.NewBuilder(n)
	l := New(cm.NewTestEntry(t, cm.TestLogLevel))

	peer := types.NodeID(crypto.Hash([]byte("peer")))
	for _, h := range []uint64{0, 1} {
		run(l.HandleEvent(eb, nil, Request{effect.LinearChainBlockAtHeightRequest{Height: h, Sender: peer}}))
	}

	if len(n.sent) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(n.sent))
	}

	for i, req := range n.sent {
		if req.Dest != peer || req.Payload.Kind != protocol.GetResponse || req.Payload.Tag != types.TagBlockByHeight {
			t.Fatalf("unexpected response %s", req)
		}
		var item types.BlockByHeight
		if err := types.Decode(req.Payload.SerializedItem, &item); err != nil {
			t.Fatal(err)
		}
		if item.Height != uint64(i) || item.IsAbsent() != (i == 1) {
			t.Fatalf("unexpected item %s", &item)
		}
	}
}
