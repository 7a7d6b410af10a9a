package consensus

import (
	"context"
	"io/ioutil"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec"
	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/components/chainspec"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

type recorder struct {
	events []interface{}
}

func (r *recorder) Schedule(ev interface{}, kind effect.QueueKind) {
	r.events = append(r.events, ev)
	switch req := ev.(type) {
	case effect.ProtoBlockRequest:
		req.Responder.Respond(&types.ProtoBlock{Random: req.Random})
	case effect.BroadcastRequest:
		req.Responder.Respond(struct{}{})
	}
}

func run(effects effect.Effects[Event]) []Event {
	var out []Event
	for _, eff := range effects {
		out = append(out, eff(context.Background())...)
	}
	return out
}

func writeKey(t *testing.T) (*btcec.PrivateKey, string, func()) {
	dir, err := ioutil.TempDir("", "consensus")
	if err != nil {
		t.Fatal(err)
	}
	sk, err := keys.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, config.DefaultKeyfile)
	if err := keys.NewSimpleKeyfile(path).WriteKey(sk); err != nil {
		t.Fatal(err)
	}
	return sk, path, func() { os.RemoveAll(dir) }
}

func highway() chainspec.HighwayConfig {
	h := chainspec.DefaultHighwayConfig()
	h.EraDuration = 10 * time.Millisecond
	return h
}

func newSupervisor(t *testing.T, r *recorder, others ...*btcec.PrivateKey) (*EraSupervisor, effect.Effects[Event], func()) {
	sk, path, cleanup := writeKey(t)

	stakes := map[string]uint64{keys.PublicKeyHex(sk.PubKey()): 10}
	for _, o := range others {
		stakes[keys.PublicKeyHex(o.PubKey())] = 20
	}

	es, effects, err := NewEraSupervisor(
		types.Now(),
		config.ConsensusConfig{SecretKeyPath: path},
		effect.NewBuilder(r),
		stakes,
		highway(),
		rand.New(rand.NewSource(1)),
		cm.NewTestEntry(t, cm.TestLogLevel),
	)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	return es, effects, cleanup
}

func TestNewEraSupervisorErrors(t *testing.T) {
	_, path, cleanup := writeKey(t)
	defer cleanup()

	eb := effect.NewBuilder(&recorder{})
	rng := rand.New(rand.NewSource(1))
	logger := cm.NewTestEntry(t, cm.TestLogLevel)

	_, _, err := NewEraSupervisor(types.Now(), config.ConsensusConfig{SecretKeyPath: path}, eb, nil, highway(), rng, logger)
	if err != ErrNoValidators {
		t.Fatalf("expected ErrNoValidators, got %v", err)
	}

	stakes := map[string]uint64{"02aa": 1}
	missing := filepath.Join(os.TempDir(), "no-such-key")
	if _, _, err := NewEraSupervisor(types.Now(), config.ConsensusConfig{SecretKeyPath: missing}, eb, stakes, highway(), rng, logger); err == nil {
		t.Fatal("a missing key file should be an error")
	}
}

func TestInitialEffects(t *testing.T) {
	r := &recorder{}
	es, effects, cleanup := newSupervisor(t, r)
	defer cleanup()

	if !es.IsValidator() {
		t.Fatal("our key is in the stake table")
	}
	if len(effects) != 2 {
		t.Fatalf("expected 2 initial effects, got %d", len(effects))
	}

	events := run(effects)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(NewProtoBlock); !ok {
		t.Fatalf("first effect should request a proto-block, got %s", events[0])
	}
	if timer, ok := events[1].(Timer); !ok || timer.Era != 0 {
		t.Fatalf("second effect should be the era timer, got %s", events[1])
	}
}

func TestHandleLinearChainBlock(t *testing.T) {
	r := &recorder{}
	es, _, cleanup := newSupervisor(t, r)
	defer cleanup()
	eb := effect.NewBuilder(r)

	header := &types.BlockHeader{Height: 4, Era: 0, SwitchBlock: true}
	run(es.HandleEvent(eb, nil, Request{effect.HandleLinearChainBlockRequest{Header: header}}))

	if len(r.events) != 1 {
		t.Fatalf("expected one announcement, got %d", len(r.events))
	}
	handled, ok := r.events[0].(effect.Handled)
	if !ok || handled.Height != 4 {
		t.Fatalf("expected Handled(4), got %v", r.events[0])
	}
	if es.CurrentEra() != 1 {
		t.Fatalf("switch block should start era 1, current %d", es.CurrentEra())
	}
	if es.NextHeight() != 5 {
		t.Fatalf("next height should be 5, got %d", es.NextHeight())
	}
}

func TestProposeAndVotes(t *testing.T) {
	other, err := keys.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	r := &recorder{}
	es, _, cleanup := newSupervisor(t, r, other)
	defer cleanup()
	eb := effect.NewBuilder(r)

	proto := &types.ProtoBlock{Random: true}
	run(es.HandleEvent(eb, nil, NewProtoBlock{Era: 0, ProtoBlock: proto}))

	hash, err := proto.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if es.Weight(hash) != 10 {
		t.Fatalf("our own vote should weigh 10, got %d", es.Weight(hash))
	}

	vote := func(h crypto.Digest) []byte {
		v := Vote{Era: 0, ProtoBlock: h, Creator: keys.PublicKeyHex(other.PubKey())}
		if err := v.Sign(other); err != nil {
			t.Fatal(err)
		}
		raw, err := v.Marshal()
		if err != nil {
			t.Fatal(err)
		}
		return raw
	}

	run(es.HandleEvent(eb, nil, MessageReceived{Payload: vote(hash)}))
	if es.Weight(hash) != 30 {
		t.Fatalf("both votes should weigh 30, got %d", es.Weight(hash))
	}

	r.events = nil
	run(es.HandleEvent(eb, nil, MessageReceived{Payload: vote(crypto.Hash([]byte("other")))}))

	var fault *effect.Fault
	for _, ev := range r.events {
		if f, ok := ev.(effect.Fault); ok {
			fault = &f
		}
	}
	if fault == nil || fault.PublicKey != keys.PublicKeyHex(other.PubKey()) {
		t.Fatal("conflicting votes should be reported as a fault")
	}
}

func TestInvalidMessage(t *testing.T) {
	r := &recorder{}
	es, _, cleanup := newSupervisor(t, r)
	defer cleanup()

	effects := es.HandleEvent(effect.NewBuilder(r), nil, MessageReceived{Payload: []byte{0xc1}})
	if len(effects) != 0 {
		t.Fatal("undecodable message should be dropped")
	}
}
