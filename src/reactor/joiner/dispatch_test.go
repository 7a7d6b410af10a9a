package joiner

import (
	"context"
	"math/rand"
	"strings"
	"testing"

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
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// recorder is a component that remembers what it was given and answers with
// a single effect producing nothing.
type recorder[Ev any] struct {
	events []Ev
}

func (r *recorder[Ev]) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Ev) effect.Effects[Ev] {
	r.events = append(r.events, ev)
	return effect.Effects[Ev]{func(context.Context) []Ev { return nil }}
}

type fakeNetwork struct {
	recorder[network.Event]
	finalized int
}

func (f *fakeNetwork) Finalize(ctx context.Context) error {
	f.finalized++
	return nil
}

type fakeSync struct {
	recorder[linearchainsync.Event]
	synced bool
}

func (f *fakeSync) IsSynced() bool { return f.synced }

type fakeLinearChain struct {
	recorder[linearchain.Event]
	chain []*types.Block
}

func (f *fakeLinearChain) LinearChain() []*types.Block {
	return append([]*types.Block{}, f.chain...)
}

type nopScheduler struct{}

func (nopScheduler) Schedule(interface{}, effect.QueueKind) {}

type harness struct {
	r    *Reactor
	hook *test.Hook

	storage              *recorder[storage.Event]
	contractRuntime      *recorder[contractruntime.Event]
	consensus            *recorder[consensus.Event]
	network              *fakeNetwork
	addressGossiper      *recorder[gossiper.Event]
	linearChainSync      *fakeSync
	blockFetcher         *recorder[blockFetcherEvent]
	blockByHeightFetcher *recorder[blockByHeightFetcherEvent]
	deployFetcher        *recorder[deployFetcherEvent]
	blockValidator       *recorder[blockvalidator.Event]
	blockExecutor        *recorder[blockexecutor.Event]
	linearChain          *fakeLinearChain
}

func newHarness(t *testing.T) *harness {
	logger, hook := test.NewNullLogger()
	logger.Level = logrus.DebugLevel

	h := &harness{
		hook:                 hook,
		storage:              &recorder[storage.Event]{},
		contractRuntime:      &recorder[contractruntime.Event]{},
		consensus:            &recorder[consensus.Event]{},
		network:              &fakeNetwork{},
		addressGossiper:      &recorder[gossiper.Event]{},
		linearChainSync:      &fakeSync{},
		blockFetcher:         &recorder[blockFetcherEvent]{},
		blockByHeightFetcher: &recorder[blockByHeightFetcherEvent]{},
		deployFetcher:        &recorder[deployFetcherEvent]{},
		blockValidator:       &recorder[blockvalidator.Event]{},
		blockExecutor:        &recorder[blockexecutor.Event]{},
		linearChain:          &fakeLinearChain{},
	}
	h.r = &Reactor{
		storage:              h.storage,
		contractRuntime:      h.contractRuntime,
		consensus:            h.consensus,
		network:              h.network,
		addressGossiper:      h.addressGossiper,
		linearChainSync:      h.linearChainSync,
		blockFetcher:         h.blockFetcher,
		blockByHeightFetcher: h.blockByHeightFetcher,
		deployFetcher:        h.deployFetcher,
		blockValidator:       h.blockValidator,
		blockExecutor:        h.blockExecutor,
		linearChain:          h.linearChain,
		logger:               logger.WithField("reactor", "joiner"),
	}
	return h
}

func (h *harness) dispatch(ev Event) effect.Effects[Event] {
	return h.r.DispatchEvent(effect.NewBuilder(nopScheduler{}), rand.New(rand.NewSource(1)), ev)
}

// delivered counts the events handed to every fake component.
func (h *harness) delivered() int {
	return len(h.storage.events) +
		len(h.contractRuntime.events) +
		len(h.consensus.events) +
		len(h.network.events) +
		len(h.addressGossiper.events) +
		len(h.linearChainSync.events) +
		len(h.blockFetcher.events) +
		len(h.blockByHeightFetcher.events) +
		len(h.deployFetcher.events) +
		len(h.blockValidator.events) +
		len(h.blockExecutor.events) +
		len(h.linearChain.events)
}

func (h *harness) entries(level logrus.Level) []*logrus.Entry {
	var res []*logrus.Entry
	for _, e := range h.hook.AllEntries() {
		if e.Level == level {
			res = append(res, e)
		}
	}
	return res
}

func testPeer(b byte) types.NodeID {
	return types.NodeID(crypto.Hash([]byte{b}))
}

func testBlock(t *testing.T, height uint64) *types.Block {
	fb := &types.FinalizedBlock{
		Timestamp: types.Timestamp(1000 + height),
		Era:       0,
		Height:    height,
		Proposer:  "proposer",
	}
	b, err := types.NewBlock(types.BlockHash(crypto.Hash([]byte("parent"))), crypto.Hash([]byte("state")), fb)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNewPeerStartsSync(t *testing.T) {
	h := newHarness(t)
	peer := testPeer(1)

	effects := h.dispatch(NetworkAnnouncement{effect.NewPeer{Peer: peer}})

	if len(effects) != 1 {
		t.Fatalf("expected the effects of linear chain sync, got %d", len(effects))
	}
	if h.delivered() != 1 || len(h.linearChainSync.events) != 1 {
		t.Fatalf("only linear chain sync should see the new peer")
	}
	ev, ok := h.linearChainSync.events[0].(linearchainsync.NewPeerConnected)
	if !ok {
		t.Fatalf("expected NewPeerConnected, got %T", h.linearChainSync.events[0])
	}
	if ev.Peer != peer {
		t.Fatalf("new peer should be %s, not %s", peer, ev.Peer)
	}
}

func TestEffectsAreWrapped(t *testing.T) {
	h := newHarness(t)

	effects := h.dispatch(NetworkAnnouncement{effect.NewPeer{Peer: testPeer(1)}})
	for _, f := range effects {
		if evs := f(context.Background()); len(evs) != 0 {
			t.Fatalf("fake effect should produce nothing, got %v", evs)
		}
	}
}

func TestBlockResponseGoesToFetcher(t *testing.T) {
	h := newHarness(t)
	peer := testPeer(2)
	block := testBlock(t, 3)

	msg, err := protocol.NewGetResponse(types.TagBlock, block)
	if err != nil {
		t.Fatal(err)
	}

	h.dispatch(NetworkAnnouncement{effect.MessageReceived{Sender: peer, Payload: msg}})

	if len(h.blockFetcher.events) != 1 || h.delivered() != 1 {
		t.Fatalf("block fetcher should be the only recipient")
	}
	got, ok := h.blockFetcher.events[0].(fetcher.GotRemotely[types.BlockHash, *types.Block])
	if !ok {
		t.Fatalf("expected GotRemotely, got %T", h.blockFetcher.events[0])
	}
	if got.Item.Hash != block.Hash {
		t.Fatalf("received block should be %s, not %s", block.Hash, got.Item.Hash)
	}
	if got.Source != types.PeerSource(peer) {
		t.Fatalf("source should be %s, not %s", types.PeerSource(peer), got.Source)
	}
}

func TestBlockByHeightResponseGoesToFetcher(t *testing.T) {
	h := newHarness(t)
	peer := testPeer(3)

	msg, err := protocol.NewGetResponse(types.TagBlockByHeight, types.NewBlockByHeight(testBlock(t, 5)))
	if err != nil {
		t.Fatal(err)
	}

	h.dispatch(NetworkAnnouncement{effect.MessageReceived{Sender: peer, Payload: msg}})

	if len(h.blockByHeightFetcher.events) != 1 || h.delivered() != 1 {
		t.Fatalf("block by height fetcher should be the only recipient")
	}
	got, ok := h.blockByHeightFetcher.events[0].(fetcher.GotRemotely[uint64, *types.BlockByHeight])
	if !ok {
		t.Fatalf("expected GotRemotely, got %T", h.blockByHeightFetcher.events[0])
	}
	if got.Item.IsAbsent() {
		t.Fatal("block by height should not be absent")
	}
}

func TestCorruptedBlockResponse(t *testing.T) {
	h := newHarness(t)
	peer := testPeer(4)

	msg := protocol.Message{
		Kind:           protocol.GetResponse,
		Tag:            types.TagBlock,
		SerializedItem: []byte{0xc1, 0xff, 0x00},
	}

	effects := h.dispatch(NetworkAnnouncement{effect.MessageReceived{Sender: peer, Payload: msg}})

	if len(effects) != 0 {
		t.Fatalf("a corrupted block should produce no effects, got %d", len(effects))
	}
	if h.delivered() != 0 {
		t.Fatal("a corrupted block should not reach any component")
	}
	errs := h.entries(logrus.ErrorLevel)
	if len(errs) != 1 {
		t.Fatalf("expected one error entry, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Message, peer.String()) {
		t.Fatalf("error should name the sender: %q", errs[0].Message)
	}
}

func TestUnroutedMessagesDropped(t *testing.T) {
	h := newHarness(t)

	deploy, err := protocol.NewGetResponse(types.TagDeploy, []byte("not a deploy"))
	if err != nil {
		t.Fatal(err)
	}
	request, err := protocol.NewGetRequest(types.TagBlock, types.BlockHash{})
	if err != nil {
		t.Fatal(err)
	}

	for _, msg := range []protocol.Message{
		deploy,
		request,
		protocol.NewConsensus([]byte("vote")),
		{Kind: protocol.AddressGossiper},
	} {
		effects := h.dispatch(NetworkAnnouncement{effect.MessageReceived{Sender: testPeer(5), Payload: msg}})
		if len(effects) != 0 {
			t.Fatalf("%s should produce no effects", msg)
		}
	}

	if h.delivered() != 0 {
		t.Fatal("dropped messages should not reach any component")
	}
	if n := len(h.entries(logrus.WarnLevel)); n != 4 {
		t.Fatalf("expected 4 warnings, got %d", n)
	}
}

func TestAddressGossip(t *testing.T) {
	h := newHarness(t)
	addr := types.NewGossipedAddress("127.0.0.1:4000", 1)

	h.dispatch(NetworkAnnouncement{effect.GossipOurAddress{Address: addr}})

	if len(h.addressGossiper.events) != 1 {
		t.Fatalf("gossiper should receive our address")
	}
	item, ok := h.addressGossiper.events[0].(gossiper.ItemReceived)
	if !ok {
		t.Fatalf("expected ItemReceived, got %T", h.addressGossiper.events[0])
	}
	if item.Item != addr || item.Source != types.ClientSource() {
		t.Fatalf("unexpected item %v from %s", item.Item, item.Source)
	}

	gossip := protocol.NewAddressGossip(protocol.NewGossip(addr))
	h.dispatch(NetworkAnnouncement{effect.MessageReceived{Sender: testPeer(6), Payload: gossip}})

	if len(h.addressGossiper.events) != 2 {
		t.Fatalf("gossiper should receive the gossip message")
	}
	if _, ok := h.addressGossiper.events[1].(gossiper.MessageReceived); !ok {
		t.Fatalf("expected MessageReceived, got %T", h.addressGossiper.events[1])
	}

	h.dispatch(AddressGossiperAnnouncement{effect.NewCompleteItem[types.GossipedAddress]{Item: addr}})

	if len(h.network.events) != 1 {
		t.Fatalf("network should learn about the complete address")
	}
	received, ok := h.network.events[0].(network.PeerAddressReceived)
	if !ok {
		t.Fatalf("expected PeerAddressReceived, got %T", h.network.events[0])
	}
	if received.Address != addr {
		t.Fatalf("network should receive %s, not %s", addr, received.Address)
	}
}

func TestBlockHandledGoesToSync(t *testing.T) {
	h := newHarness(t)

	effects := h.dispatch(ConsensusAnnouncement{effect.Handled{Height: 42}})

	if len(effects) != 1 || len(h.linearChainSync.events) != 1 {
		t.Fatal("linear chain sync should be told about the handled block")
	}
	ev, ok := h.linearChainSync.events[0].(linearchainsync.BlockHandled)
	if !ok || ev.Height != 42 {
		t.Fatalf("expected BlockHandled(42), got %v", h.linearChainSync.events[0])
	}

	if effects := h.dispatch(ConsensusAnnouncement{effect.Proposed{}}); len(effects) != 0 {
		t.Fatal("other consensus announcements should be ignored")
	}
	if h.delivered() != 1 {
		t.Fatal("ignored announcement reached a component")
	}
}

func TestExecutedBlockGoesToLinearChain(t *testing.T) {
	h := newHarness(t)
	block := testBlock(t, 1)

	h.dispatch(BlockExecutorAnnouncement{effect.LinearChainBlock{Block: block}})

	if len(h.linearChain.events) != 1 {
		t.Fatal("linear chain should receive the executed block")
	}
	ev, ok := h.linearChain.events[0].(linearchain.NewLinearChainBlock)
	if !ok || ev.Block != block {
		t.Fatalf("expected NewLinearChainBlock, got %v", h.linearChain.events[0])
	}
}

func TestRequestsReachComponents(t *testing.T) {
	h := newHarness(t)
	block := testBlock(t, 1)

	h.dispatch(BlockFetcherRequest{effect.FetcherRequest[types.BlockHash, *types.Block]{ID: block.Hash, Peer: testPeer(1)}})
	h.dispatch(BlockByHeightFetcherRequest{effect.FetcherRequest[uint64, *types.BlockByHeight]{ID: 1, Peer: testPeer(1)}})
	h.dispatch(DeployFetcherRequest{effect.FetcherRequest[types.DeployHash, *types.Deploy]{Peer: testPeer(1)}})
	h.dispatch(BlockValidatorRequest{effect.BlockValidationRequest[*types.Block]{Block: block, Sender: testPeer(1)}})
	h.dispatch(BlockExecutorRequest{effect.ExecuteBlockRequest{Block: block}})
	h.dispatch(NetworkEvent{network.GossipOurAddress{}})

	if len(h.blockFetcher.events) != 1 ||
		len(h.blockByHeightFetcher.events) != 1 ||
		len(h.deployFetcher.events) != 1 ||
		len(h.blockValidator.events) != 1 ||
		len(h.blockExecutor.events) != 1 ||
		len(h.network.events) != 1 {
		t.Fatal("every request should reach exactly its component")
	}
	if _, ok := h.blockValidator.events[0].(blockvalidator.Request); !ok {
		t.Fatalf("expected blockvalidator.Request, got %T", h.blockValidator.events[0])
	}
	if _, ok := h.blockExecutor.events[0].(blockexecutor.Request); !ok {
		t.Fatalf("expected blockexecutor.Request, got %T", h.blockExecutor.events[0])
	}
}

func TestUnsupportedRequestsLogged(t *testing.T) {
	h := newHarness(t)

	if effects := h.dispatch(DeployBufferRequest{effect.ProtoBlockRequest{}}); len(effects) != 0 {
		t.Fatal("deploy buffer request should produce no effects")
	}
	if effects := h.dispatch(ProtoBlockValidatorRequest{effect.BlockValidationRequest[*types.ProtoBlock]{}}); len(effects) != 0 {
		t.Fatal("proto block validation request should produce no effects")
	}

	if h.delivered() != 0 {
		t.Fatal("unsupported requests should not reach any component")
	}
	if n := len(h.entries(logrus.ErrorLevel)); n != 2 {
		t.Fatalf("expected 2 error entries, got %d", n)
	}
}

func TestEveryEventHasOneRecipient(t *testing.T) {
	block := testBlock(t, 1)
	peer := testPeer(7)

	cases := []struct {
		ev        Event
		recipient func(h *harness) int
	}{
		{NetworkEvent{network.GossipOurAddress{}}, func(h *harness) int { return len(h.network.events) }},
		{NetworkAnnouncement{effect.NewPeer{Peer: peer}}, func(h *harness) int { return len(h.linearChainSync.events) }},
		{StorageEvent{storage.Event{Request: effect.GetHighestBlockRequest{}}}, func(h *harness) int { return len(h.storage.events) }},
		{BlockFetcherRequest{effect.FetcherRequest[types.BlockHash, *types.Block]{ID: block.Hash, Peer: peer}}, func(h *harness) int { return len(h.blockFetcher.events) }},
		{BlockFetcherEvent{fetcher.TimeoutPeer[types.BlockHash, *types.Block]{ID: block.Hash, Peer: peer}}, func(h *harness) int { return len(h.blockFetcher.events) }},
		{BlockByHeightFetcherRequest{effect.FetcherRequest[uint64, *types.BlockByHeight]{ID: 1, Peer: peer}}, func(h *harness) int { return len(h.blockByHeightFetcher.events) }},
		{BlockByHeightFetcherEvent{fetcher.TimeoutPeer[uint64, *types.BlockByHeight]{ID: 1, Peer: peer}}, func(h *harness) int { return len(h.blockByHeightFetcher.events) }},
		{DeployFetcherRequest{effect.FetcherRequest[types.DeployHash, *types.Deploy]{Peer: peer}}, func(h *harness) int { return len(h.deployFetcher.events) }},
		{DeployFetcherEvent{fetcher.TimeoutPeer[types.DeployHash, *types.Deploy]{Peer: peer}}, func(h *harness) int { return len(h.deployFetcher.events) }},
		{BlockValidatorRequest{effect.BlockValidationRequest[*types.Block]{Block: block, Sender: peer}}, func(h *harness) int { return len(h.blockValidator.events) }},
		{BlockValidatorEvent{blockvalidator.DeployFetched{}}, func(h *harness) int { return len(h.blockValidator.events) }},
		{BlockExecutorRequest{effect.ExecuteBlockRequest{Block: block}}, func(h *harness) int { return len(h.blockExecutor.events) }},
		{BlockExecutorEvent{blockexecutor.GetDeploysResult{}}, func(h *harness) int { return len(h.blockExecutor.events) }},
		{BlockExecutorAnnouncement{effect.LinearChainBlock{Block: block}}, func(h *harness) int { return len(h.linearChain.events) }},
		{ContractRuntimeEvent{contractruntime.Event{}}, func(h *harness) int { return len(h.contractRuntime.events) }},
		{LinearChainEvent{linearchain.NewLinearChainBlock{Block: block}}, func(h *harness) int { return len(h.linearChain.events) }},
		{ConsensusEvent{consensus.Timer{Era: 1}}, func(h *harness) int { return len(h.consensus.events) }},
		{ConsensusAnnouncement{effect.Handled{Height: 1}}, func(h *harness) int { return len(h.linearChainSync.events) }},
		{AddressGossiperEvent{gossiper.CheckGossipTimeout{}}, func(h *harness) int { return len(h.addressGossiper.events) }},
		{AddressGossiperAnnouncement{effect.NewCompleteItem[types.GossipedAddress]{}}, func(h *harness) int { return len(h.network.events) }},
		{LinearChainSyncEvent{linearchainsync.BlockHandled{Height: 1}}, func(h *harness) int { return len(h.linearChainSync.events) }},
	}

	for _, c := range cases {
		h := newHarness(t)

		effects := h.dispatch(c.ev)

		if n := c.recipient(h); n != 1 {
			t.Fatalf("%T: recipient got %d events", c.ev, n)
		}
		if n := h.delivered(); n != 1 {
			t.Fatalf("%T: %d components saw the event", c.ev, n)
		}
		if len(effects) != 1 {
			t.Fatalf("%T: expected the recipient's effect, got %d", c.ev, len(effects))
		}
	}
}

func TestDispatchAfterTeardown(t *testing.T) {
	h := newHarness(t)
	h.r.IntoValidatorConfig(context.Background())

	effects := h.dispatch(NetworkAnnouncement{effect.NewPeer{Peer: testPeer(1)}})

	if len(effects) != 0 {
		t.Fatalf("a torn down reactor should produce no effects, got %d", len(effects))
	}
	if h.delivered() != 0 {
		t.Fatal("a torn down reactor should not route events")
	}
	if n := len(h.entries(logrus.ErrorLevel)); n != 1 {
		t.Fatalf("expected 1 error entry, got %d", n)
	}
}

type strayEvent struct{}

func (strayEvent) String() string { return "stray" }
func (strayEvent) isJoinerEvent() {}

func TestUnknownEventPanics(t *testing.T) {
	h := newHarness(t)

	defer func() {
		if recover() == nil {
			t.Fatal("an unroutable event should panic")
		}
	}()
	h.dispatch(strayEvent{})
}
