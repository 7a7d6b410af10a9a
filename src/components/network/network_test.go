package network

import (
	"context"
	"math/rand"
	"testing"
	"time"

	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
)

// harness drives a Network the way the reactor does: one goroutine handles
// events, effects run on their own goroutines and feed their results back.
type harness struct {
	net    *Network
	events chan interface{}
	ctx    context.Context
}

func (h *harness) Schedule(ev interface{}, kind effect.QueueKind) {
	select {
	case h.events <- ev:
	case <-h.ctx.Done():
	}
}

func (h *harness) run(effects effect.Effects[Event]) {
	for _, eff := range effects {
		go func(eff effect.Effect[Event]) {
			for _, ev := range eff(h.ctx) {
				h.Schedule(ev, effect.QueueRegular)
			}
		}(eff)
	}
}

// waitFor handles network events until match accepts one of the events or
// announcements raised.
func (h *harness) waitFor(t *testing.T, rng *rand.Rand, match func(interface{}) bool) interface{} {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-h.events:
			if match(ev) {
				return ev
			}
			if nev, ok := ev.(Event); ok {
				h.run(h.net.HandleEvent(effect.NewBuilder(h), rng, nev))
			}
		case <-timeout:
			t.Fatal("timeout waiting for network event")
			return nil
		}
	}
}

func newHarness(t *testing.T, ctx context.Context, bootstrap ...string) *harness {
	conf := config.NewTestConfig(t, cm.TestLogLevel).Network
	conf.KnownAddresses = bootstrap
	conf.GossipInterval = time.Hour

	h := &harness{events: make(chan interface{}, 64), ctx: ctx}
	n, effects, err := New(effect.NewBuilder(h), conf, cm.NewTestEntry(t, cm.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	h.net = n
	h.run(effects)
	return h
}

func TestHandshakeAndMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rng := rand.New(rand.NewSource(1))

	a := newHarness(t, ctx)
	defer a.net.Finalize(context.Background())

	b := newHarness(t, ctx, a.net.AdvertiseAddr())
	defer b.net.Finalize(context.Background())

	// b dials a
	ev := b.waitFor(t, rng, func(ev interface{}) bool {
		_, ok := ev.(effect.NewPeer)
		return ok
	})
	if ev.(effect.NewPeer).Peer != a.net.ID() {
		t.Fatalf("b should be connected to a, got %s", ev.(effect.NewPeer).Peer)
	}

	// a learns about b and dials back
	ev = a.waitFor(t, rng, func(ev interface{}) bool {
		_, ok := ev.(effect.NewPeer)
		return ok
	})
	if ev.(effect.NewPeer).Peer != b.net.ID() {
		t.Fatalf("a should be connected to b, got %s", ev.(effect.NewPeer).Peer)
	}

	// b sends a message to a
	msg := protocol.NewConsensus([]byte("hello"))
	r := effect.NewResponder[struct{}]()
	b.run(b.net.HandleEvent(effect.NewBuilder(b), rng, Request{effect.SendMessageRequest{
		Dest:      a.net.ID(),
		Payload:   msg,
		Responder: r,
	}}))
	if _, err := r.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	ev = a.waitFor(t, rng, func(ev interface{}) bool {
		_, ok := ev.(effect.MessageReceived)
		return ok
	})
	received := ev.(effect.MessageReceived)
	if received.Sender != b.net.ID() {
		t.Fatalf("message should come from b, got %s", received.Sender)
	}
	if string(received.Payload.Payload) != "hello" {
		t.Fatalf("unexpected payload %q", received.Payload.Payload)
	}
}

func TestSendToUnknownPeer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newHarness(t, ctx)
	defer a.net.Finalize(context.Background())

	r := effect.NewResponder[struct{}]()
	effects := a.net.HandleEvent(effect.NewBuilder(a), nil, Request{effect.SendMessageRequest{
		Dest:      types.NodeID{1},
		Payload:   protocol.NewConsensus(nil),
		Responder: r,
	}})
	if len(effects) != 0 {
		t.Fatal("message to an unknown peer should be dropped")
	}
	if _, err := r.Wait(ctx); err != nil {
		t.Fatal("requester should still be answered")
	}
}

func TestGossipOurAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newHarness(t, ctx)
	defer a.net.Finalize(context.Background())

	a.run(a.net.HandleEvent(effect.NewBuilder(a), nil, GossipOurAddress{}))
	ev := a.waitFor(t, nil, func(ev interface{}) bool {
		_, ok := ev.(effect.GossipOurAddress)
		return ok
	})
	if ev.(effect.GossipOurAddress).Address.Address != a.net.AdvertiseAddr() {
		t.Fatalf("should gossip our advertised address, got %s", ev.(effect.GossipOurAddress).Address)
	}
}

func TestFinalizeTwice(t *testing.T) {
	a := newHarness(t, context.Background())
	if err := a.net.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.net.Finalize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := a.net.stream.Dial(a.net.AdvertiseAddr(), time.Second); err == nil {
		t.Fatal("listener should be closed")
	}
}

func TestHandshakeVerify(t *testing.T) {
	sk, err := keys.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hs, err := newHandshake(sk, "127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	id, err := hs.verify()
	if err != nil {
		t.Fatal(err)
	}
	if id != types.NodeIDFromPublicKey(sk.PubKey()) {
		t.Fatal("node id should derive from the handshake key")
	}

	hs.Address = "127.0.0.1:2"
	if _, err := hs.verify(); err == nil {
		t.Fatal("tampered handshake should not verify")
	}
}
