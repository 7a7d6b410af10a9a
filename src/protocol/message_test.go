package protocol

import (
	"testing"

	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/types"
)

func TestGetRequestCarriesID(t *testing.T) {
	hash := types.BlockHash(crypto.Hash([]byte("block")))

	msg, err := NewGetRequest(types.TagBlock, hash)
	if err != nil {
		t.Fatal(err)
	}

	if msg.Kind != GetRequest || msg.Tag != types.TagBlock {
		t.Fatalf("unexpected message %s", msg)
	}

	var id types.BlockHash
	if err := types.Decode(msg.SerializedID, &id); err != nil {
		t.Fatal(err)
	}
	if id != hash {
		t.Fatalf("decoded id should be %s, not %s", hash, id)
	}
}

func TestMessageOverTheWire(t *testing.T) {
	addr := types.NewGossipedAddress("127.0.0.1:7000", 2)
	msg := NewAddressGossip(NewGossipResponse(addr, true))

	raw, err := types.Encode(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Message
	if err := types.Decode(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Kind != AddressGossiper || decoded.Gossip == nil {
		t.Fatalf("decoded message should carry gossip, got %s", decoded)
	}
	if decoded.Gossip.Item != addr || !decoded.Gossip.IsAlreadyHeld {
		t.Fatalf("decoded gossip should be %s, not %s", addr, decoded.Gossip)
	}
}
