package gossiper

import (
	"time"

	"github.com/mosaicnetworks/joiner/src/types"
)

type entry struct {
	holders    map[types.NodeID]struct{}
	infected   int
	inFlight   map[types.NodeID]struct{}
	finished   bool
	finishedAt time.Time
}

func newEntry() *entry {
	return &entry{
		holders:  make(map[types.NodeID]struct{}),
		inFlight: make(map[types.NodeID]struct{}),
	}
}

// exclude returns the peers that should not be gossiped to again.
func (e *entry) exclude() map[types.NodeID]struct{} {
	ex := make(map[types.NodeID]struct{}, len(e.holders)+len(e.inFlight))
	for p := range e.holders {
		ex[p] = struct{}{}
	}
	for p := range e.inFlight {
		ex[p] = struct{}{}
	}
	return ex
}

// table tracks the gossip state of every known item.
type table struct {
	entries          map[types.GossipedAddress]*entry
	infectionTarget  int
	finishedDuration time.Duration
}

func newTable(infectionTarget int, finishedDuration time.Duration) *table {
	return &table{
		entries:          make(map[types.GossipedAddress]*entry),
		infectionTarget:  infectionTarget,
		finishedDuration: finishedDuration,
	}
}

// add registers an item and reports whether it was new.
func (t *table) add(item types.GossipedAddress) (*entry, bool) {
	t.purge(time.Now())
	if e, ok := t.entries[item]; ok {
		return e, false
	}
	e := newEntry()
	t.entries[item] = e
	return e, true
}

func (t *table) get(item types.GossipedAddress) (*entry, bool) {
	e, ok := t.entries[item]
	return e, ok
}

// infect records that peer now holds item and reports whether gossip should
// continue.
func (t *table) infect(item types.GossipedAddress, peer types.NodeID, wasHeld bool) bool {
	e, ok := t.entries[item]
	if !ok || e.finished {
		return false
	}
	delete(e.inFlight, peer)
	if _, ok := e.holders[peer]; !ok {
		e.holders[peer] = struct{}{}
		if !wasHeld {
			e.infected++
		}
	}
	if e.infected >= t.infectionTarget {
		t.finish(e)
		return false
	}
	return true
}

func (t *table) finish(e *entry) {
	if e.finished {
		return
	}
	e.finished = true
	e.finishedAt = time.Now()
	e.inFlight = make(map[types.NodeID]struct{})
}

// purge forgets finished items older than finishedDuration.
func (t *table) purge(now time.Time) {
	for item, e := range t.entries {
		if e.finished && now.Sub(e.finishedAt) > t.finishedDuration {
			delete(t.entries, item)
		}
	}
}
