package gossiper

import (
	"math/rand"
	"time"

	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// Gossiper gossips addresses.
type Gossiper struct {
	table           *table
	infectionTarget int
	requestTimeout  time.Duration
	logger          *logrus.Entry
}

// New ...
func New(conf config.GossipConfig, logger *logrus.Entry) *Gossiper {
	target := conf.InfectionTarget
	if target <= 0 {
		target = 1
	}
	return &Gossiper{
		table:           newTable(target, conf.FinishedEntryDuration),
		infectionTarget: target,
		requestTimeout:  conf.GossipRequestTimeout,
		logger:          logger.WithField("component", "address_gossiper"),
	}
}

// HandleEvent implements reactor.Component.
func (g *Gossiper) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case ItemReceived:
		return g.itemReceived(eb, e)
	case MessageReceived:
		switch e.Message.Kind {
		case protocol.Gossip:
			return g.gossipReceived(eb, e.Sender, e.Message.Item)
		case protocol.GossipResponse:
			return g.responseReceived(eb, e.Sender, e.Message.Item, e.Message.IsAlreadyHeld)
		default:
			g.logger.WithField("message", e.String()).Warn("Unknown gossip message")
			return nil
		}
	case GossipedTo:
		return g.gossipedTo(eb, e)
	case CheckGossipTimeout:
		return g.checkTimeout(eb, e)
	default:
		g.logger.WithField("event", ev.String()).Error("Unknown gossiper event")
		return nil
	}
}

// IsFinished reports whether gossip about item is complete.
func (g *Gossiper) IsFinished(item types.GossipedAddress) bool {
	e, ok := g.table.get(item)
	return ok && e.finished
}

func (g *Gossiper) itemReceived(eb effect.Builder, e ItemReceived) effect.Effects[Event] {
	entry, isNew := g.table.add(e.Item)
	if !isNew {
		g.logger.WithField("item", e.Item).Debug("Item already known")
		return nil
	}
	if peer, ok := e.Source.NodeID(); ok {
		entry.holders[peer] = struct{}{}
	}
	return g.gossip(eb, e.Item, g.infectionTarget, entry.exclude())
}

func (g *Gossiper) gossipReceived(eb effect.Builder, sender types.NodeID, item types.GossipedAddress) effect.Effects[Event] {
	entry, isNew := g.table.add(item)
	entry.holders[sender] = struct{}{}

	reply := protocol.NewAddressGossip(protocol.NewGossipResponse(item, !isNew))
	effects := effect.Ignore[Event](eb.SendMessage(sender, reply))

	if !isNew {
		return effects
	}

	g.logger.WithFields(logrus.Fields{
		"item":   item,
		"sender": sender,
	}).Debug("New item from peer")

	effects = append(effects, effect.Ignore[Event](eb.AnnounceNewCompleteItem(item))...)
	effects = append(effects, g.gossip(eb, item, g.infectionTarget, entry.exclude())...)
	return effects
}

func (g *Gossiper) responseReceived(eb effect.Builder, sender types.NodeID, item types.GossipedAddress, held bool) effect.Effects[Event] {
	if !g.table.infect(item, sender, held) {
		return nil
	}
	entry, _ := g.table.get(item)
	// held responses don't count towards the target, so try one more peer
	if held {
		return g.gossip(eb, item, 1, entry.exclude())
	}
	return nil
}

func (g *Gossiper) gossipedTo(eb effect.Builder, e GossipedTo) effect.Effects[Event] {
	entry, ok := g.table.get(e.Item)
	if !ok || entry.finished {
		return nil
	}

	if len(e.Peers) == 0 && len(entry.inFlight) == 0 {
		g.logger.WithField("item", e.Item).Debug("No peers left to gossip to")
		g.table.finish(entry)
		return nil
	}

	var effects effect.Effects[Event]
	for _, peer := range e.Peers {
		peer := peer
		entry.inFlight[peer] = struct{}{}
		item := e.Item
		effects = append(effects, effect.Event(
			eb.SetTimeout(g.requestTimeout),
			func(time.Duration) Event { return CheckGossipTimeout{Item: item, Peer: peer} },
		)...)
	}
	return effects
}

func (g *Gossiper) checkTimeout(eb effect.Builder, e CheckGossipTimeout) effect.Effects[Event] {
	entry, ok := g.table.get(e.Item)
	if !ok || entry.finished {
		return nil
	}
	if _, waiting := entry.inFlight[e.Peer]; !waiting {
		return nil
	}

	g.logger.WithFields(logrus.Fields{
		"item": e.Item,
		"peer": e.Peer,
	}).Debug("Gossip timed out")

	delete(entry.inFlight, e.Peer)
	exclude := entry.exclude()
	exclude[e.Peer] = struct{}{}
	return g.gossip(eb, e.Item, 1, exclude)
}

func (g *Gossiper) gossip(eb effect.Builder, item types.GossipedAddress, count int, exclude map[types.NodeID]struct{}) effect.Effects[Event] {
	msg := protocol.NewAddressGossip(protocol.NewGossip(item))
	return effect.Event(
		eb.Gossip(msg, count, exclude),
		func(peers []types.NodeID) Event { return GossipedTo{Item: item, Peers: peers} },
	)
}
