package contractruntime

import (
	"context"
	"testing"

	cm "github.com/mosaicnetworks/joiner/src/common"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

func newTestRuntime(t *testing.T) *ContractRuntime {
	c, err := New(10, cm.NewTestEntry(t, cm.TestLogLevel))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func createDeploys(t *testing.T, n int) []*types.Deploy {
	deploys := make([]*types.Deploy, n)
	for i := range deploys {
		d, err := types.NewDeploy("acc", types.Timestamp(i), 10, 1, "test", []byte("p"), []byte{byte(i)})
		if err != nil {
			t.Fatal(err)
		}
		deploys[i] = d
	}
	return deploys
}

func TestCommitGenesisIsOrderIndependent(t *testing.T) {
	c := newTestRuntime(t)

	a := []GenesisAccount{{PublicKey: "02aa", Stake: 10}, {PublicKey: "03bb", Stake: 20}}
	b := []GenesisAccount{a[1], a[0]}

	if c.CommitGenesis("net", "1.0.0", a) != c.CommitGenesis("net", "1.0.0", b) {
		t.Fatal("genesis commitment should not depend on account order")
	}
	if c.CommitGenesis("net", "1.0.0", a) == c.CommitGenesis("other", "1.0.0", a) {
		t.Fatal("genesis commitment should depend on the chain name")
	}
}

func TestExecuteChainsDeploys(t *testing.T) {
	c := newTestRuntime(t)
	pre := crypto.Hash([]byte("pre"))
	deploys := createDeploys(t, 3)

	outcome := c.Execute(pre, deploys)
	if len(outcome.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(outcome.Results))
	}

	// executing in two steps reaches the same state
	first := c.Execute(pre, deploys[:2])
	second := c.Execute(first.PostStateHash, deploys[2:])
	if second.PostStateHash != outcome.PostStateHash {
		t.Fatalf("post-state should be %s, not %s", outcome.PostStateHash, second.PostStateHash)
	}

	empty := c.Execute(pre, nil)
	if empty.PostStateHash != pre {
		t.Fatal("executing nothing should leave the state unchanged")
	}
}

func TestHandleExecuteRequest(t *testing.T) {
	c := newTestRuntime(t)
	pre := crypto.Hash([]byte("pre"))
	deploys := createDeploys(t, 2)

	r := effect.NewResponder[types.ExecutionOutcome]()
	effects := c.HandleEvent(effect.Builder{}, nil, Event{Request: effect.ExecuteRequest{
		PreState: pre, Deploys: deploys, Responder: r,
	}})
	if len(effects) != 1 {
		t.Fatalf("expected one effect, got %d", len(effects))
	}
	effects[0](context.Background())

	outcome, err := r.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.PostStateHash != c.Execute(pre, deploys).PostStateHash {
		t.Fatal("request should be answered with the execution outcome")
	}
}
