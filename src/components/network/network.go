package network

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/hashicorp/go-multierror"
	"github.com/mosaicnetworks/joiner/src/config"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/sirupsen/logrus"
)

// retryDelay is the pause before dialling a bootstrap address again.
const retryDelay = 5 * time.Second

// Network is the TCP transport component.
type Network struct {
	id        types.NodeID
	handshake *handshake
	conf      config.NetworkConfig
	stream    StreamLayer
	eb        effect.Builder

	// only touched from HandleEvent
	outgoing    map[types.NodeID]*peerConn
	addresses   map[string]types.NodeID
	dialing     map[string]struct{}
	ownAddrs    map[string]struct{}
	bootstrap   map[string]struct{}
	gossipIndex uint32

	connLock sync.Mutex
	conns    map[*peerConn]struct{}

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	finalizeOnce sync.Once
	finalizeErr  error

	logger *logrus.Entry
}

// New binds the listener with an ephemeral identity and starts accepting
// connections. The returned effects dial every bootstrap address and arm the
// address gossip timer.
func New(eb effect.Builder, conf config.NetworkConfig, logger *logrus.Entry) (*Network, effect.Effects[Event], error) {
	sk, err := keys.GenerateKey()
	if err != nil {
		return nil, nil, err
	}

	stream, err := NewTCPStreamLayer(conf.BindAddr, conf.AdvertiseAddr)
	if err != nil {
		return nil, nil, err
	}

	return NewWithStream(eb, conf, sk, stream, logger)
}

// NewWithStream is like New with an explicit identity and stream layer.
func NewWithStream(
	eb effect.Builder,
	conf config.NetworkConfig,
	sk *btcec.PrivateKey,
	stream StreamLayer,
	logger *logrus.Entry,
) (*Network, effect.Effects[Event], error) {
	hs, err := newHandshake(sk, stream.AdvertiseAddr())
	if err != nil {
		stream.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	n := &Network{
		id:        types.NodeIDFromPublicKey(sk.PubKey()),
		handshake: hs,
		conf:      conf,
		stream:    stream,
		eb:        eb,
		outgoing:  make(map[types.NodeID]*peerConn),
		addresses: make(map[string]types.NodeID),
		dialing:   make(map[string]struct{}),
		ownAddrs:  map[string]struct{}{stream.AdvertiseAddr(): {}},
		bootstrap: make(map[string]struct{}),
		conns:     make(map[*peerConn]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	n.logger = logger.WithFields(logrus.Fields{
		"component": "network",
		"id":        n.id,
	})

	n.wg.Add(1)
	go n.listen()

	n.logger.WithFields(logrus.Fields{
		"listen":    stream.Addr(),
		"advertise": stream.AdvertiseAddr(),
		"bootstrap": conf.KnownAddresses,
	}).Info("Network started")

	var effects effect.Effects[Event]
	for _, addr := range conf.KnownAddresses {
		n.bootstrap[addr] = struct{}{}
		if _, ok := n.ownAddrs[addr]; ok {
			continue
		}
		effects = append(effects, n.connect(addr)...)
	}
	effects = append(effects, n.armGossipTimer()...)

	return n, effects, nil
}

// ID returns the NodeID of this node.
func (n *Network) ID() types.NodeID {
	return n.id
}

// AdvertiseAddr returns the address peers can reach us at.
func (n *Network) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// Peers returns the peers we hold an outgoing connection to, in no particular
// order.
func (n *Network) Peers() []types.NodeID {
	peers := make([]types.NodeID, 0, len(n.outgoing))
	for p := range n.outgoing {
		peers = append(peers, p)
	}
	return peers
}

// HandleEvent implements reactor.Component.
func (n *Network) HandleEvent(eb effect.Builder, rng *rand.Rand, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Request:
		return n.handleRequest(rng, e.Request)
	case OutgoingEstablished:
		return n.outgoingEstablished(eb, e)
	case OutgoingFailed:
		delete(n.dialing, e.Address)
		n.logger.WithError(e.Err).WithField("address", e.Address).Warn("Failed to connect")
		if _, ok := n.bootstrap[e.Address]; ok {
			addr := e.Address
			return effect.Event(
				eb.SetTimeout(retryDelay),
				func(_ time.Duration) Event {
					return PeerAddressReceived{Address: types.NewGossipedAddress(addr, 0)}
				},
			)
		}
		return nil
	case IncomingHandshake:
		if _, ok := n.outgoing[e.Peer]; ok {
			return nil
		}
		return n.maybeConnect(e.Address)
	case ConnectionClosed:
		n.logger.WithError(e.Err).WithFields(logrus.Fields{
			"peer":     e.Peer,
			"outgoing": e.Outgoing,
		}).Debug("Connection closed")
		if e.Outgoing {
			if pc, ok := n.outgoing[e.Peer]; ok {
				delete(n.outgoing, e.Peer)
				delete(n.addresses, pc.address)
			}
		}
		return nil
	case PeerAddressReceived:
		return n.maybeConnect(e.Address.Address)
	case GossipOurAddress:
		addr := types.NewGossipedAddress(n.stream.AdvertiseAddr(), n.gossipIndex)
		n.gossipIndex++
		var effects effect.Effects[Event]
		effects = append(effects, effect.Ignore[Event](eb.AnnounceGossipOurAddress(addr))...)
		effects = append(effects, n.armGossipTimer()...)
		return effects
	default:
		n.logger.WithField("event", ev.String()).Error("Unknown network event")
		return nil
	}
}

func (n *Network) handleRequest(rng *rand.Rand, req effect.NetworkRequest) effect.Effects[Event] {
	switch r := req.(type) {
	case effect.SendMessageRequest:
		pc, ok := n.outgoing[r.Dest]
		if !ok {
			n.logger.WithField("peer", r.Dest).Warn("Not connected, dropping message")
			r.Responder.Respond(struct{}{})
			return nil
		}
		return n.sendTo([]*peerConn{pc}, r.Payload, func() { r.Responder.Respond(struct{}{}) })
	case effect.BroadcastRequest:
		return n.sendTo(n.sortedConns(nil), r.Payload, func() { r.Responder.Respond(struct{}{}) })
	case effect.GossipRequest:
		conns := n.sortedConns(r.Exclude)
		if rng != nil {
			rng.Shuffle(len(conns), func(i, j int) { conns[i], conns[j] = conns[j], conns[i] })
		}
		if r.Count < len(conns) {
			conns = conns[:r.Count]
		}
		chosen := make([]types.NodeID, len(conns))
		for i, pc := range conns {
			chosen[i] = pc.peer
		}
		return n.sendTo(conns, r.Payload, func() { r.Responder.Respond(chosen) })
	default:
		n.logger.WithField("request", req.String()).Error("Unknown network request")
		return nil
	}
}

// sortedConns returns the outgoing connections not in exclude, ordered by
// peer so that random choices only depend on the rng.
func (n *Network) sortedConns(exclude map[types.NodeID]struct{}) []*peerConn {
	conns := make([]*peerConn, 0, len(n.outgoing))
	for p, pc := range n.outgoing {
		if _, ok := exclude[p]; ok {
			continue
		}
		conns = append(conns, pc)
	}
	sort.Slice(conns, func(i, j int) bool {
		return bytes.Compare(conns[i].peer[:], conns[j].peer[:]) < 0
	})
	return conns
}

func (n *Network) sendTo(conns []*peerConn, msg protocol.Message, done func()) effect.Effects[Event] {
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		for _, pc := range conns {
			if err := pc.send(msg); err != nil {
				n.logger.WithError(err).WithField("peer", pc.peer).Warn("Failed to send message")
			}
		}
		done()
		return nil
	}}
}

func (n *Network) maybeConnect(address string) effect.Effects[Event] {
	if address == "" {
		return nil
	}
	if _, ok := n.ownAddrs[address]; ok {
		return nil
	}
	if _, ok := n.dialing[address]; ok {
		return nil
	}
	if _, ok := n.addresses[address]; ok {
		return nil
	}
	return n.connect(address)
}

func (n *Network) connect(address string) effect.Effects[Event] {
	n.dialing[address] = struct{}{}
	return effect.Effects[Event]{func(ctx context.Context) []Event {
		pc, err := n.dial(address)
		if err != nil {
			return []Event{OutgoingFailed{Address: address, Err: err}}
		}
		return []Event{OutgoingEstablished{Peer: pc.peer, Address: address, conn: pc}}
	}}
}

func (n *Network) dial(address string) (*peerConn, error) {
	conn, err := n.stream.Dial(address, n.conf.TCPTimeout)
	if err != nil {
		return nil, err
	}

	pc := newPeerConn(conn, n.conf.TCPTimeout)
	if !n.track(pc) {
		pc.Close()
		return nil, n.ctx.Err()
	}

	if _, err := pc.exchangeHandshakes(n.handshake, true); err != nil {
		n.untrack(pc)
		pc.Close()
		return nil, err
	}

	return pc, nil
}

func (n *Network) outgoingEstablished(eb effect.Builder, e OutgoingEstablished) effect.Effects[Event] {
	delete(n.dialing, e.Address)

	if e.Peer == n.id {
		n.logger.WithField("address", e.Address).Debug("Connected to ourselves")
		n.ownAddrs[e.Address] = struct{}{}
		n.closeConn(e.conn)
		return nil
	}

	if _, ok := n.outgoing[e.Peer]; ok {
		n.closeConn(e.conn)
		return nil
	}

	n.outgoing[e.Peer] = e.conn
	n.addresses[e.Address] = e.Peer

	n.wg.Add(1)
	go n.readLoop(e.conn, true)

	n.logger.WithFields(logrus.Fields{
		"peer":    e.Peer,
		"address": e.Address,
	}).Info("Connected to peer")

	return effect.Ignore[Event](eb.AnnounceNewPeer(e.Peer))
}

func (n *Network) armGossipTimer() effect.Effects[Event] {
	if n.conf.GossipInterval <= 0 {
		return nil
	}
	return effect.Event(
		n.eb.SetTimeout(n.conf.GossipInterval),
		func(_ time.Duration) Event { return GossipOurAddress{} },
	)
}

// listen accepts incoming connections until the listener is closed.
func (n *Network) listen() {
	defer n.wg.Done()
	for {
		conn, err := n.stream.Accept()
		if err != nil {
			if n.isShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		pc := newPeerConn(conn, n.conf.TCPTimeout)
		if !n.track(pc) {
			pc.Close()
			return
		}

		n.wg.Add(1)
		go n.handleIncoming(pc)
	}
}

func (n *Network) handleIncoming(pc *peerConn) {
	hs, err := pc.exchangeHandshakes(n.handshake, false)
	if err != nil {
		n.logger.WithError(err).WithField("from", pc.conn.RemoteAddr()).Debug("Incoming handshake failed")
		n.untrack(pc)
		pc.Close()
		n.wg.Done()
		return
	}

	if pc.peer == n.id {
		n.untrack(pc)
		pc.Close()
		n.wg.Done()
		return
	}

	n.eb.Schedule(IncomingHandshake{Peer: pc.peer, Address: hs.Address}, effect.QueueNetworkIncoming)

	n.readLoop(pc, false)
}

// readLoop announces every message read from pc until the connection fails.
func (n *Network) readLoop(pc *peerConn, outgoing bool) {
	defer n.wg.Done()
	for {
		msg, err := pc.readMessage()
		if err != nil {
			n.untrack(pc)
			pc.Close()
			if !n.isShutdown() {
				n.eb.Schedule(ConnectionClosed{Peer: pc.peer, Outgoing: outgoing, Err: err}, effect.QueueNetworkIncoming)
			}
			return
		}
		n.eb.Schedule(effect.MessageReceived{Sender: pc.peer, Payload: msg}, effect.QueueNetworkIncoming)
	}
}

func (n *Network) track(pc *peerConn) bool {
	n.connLock.Lock()
	defer n.connLock.Unlock()
	if n.isShutdown() {
		return false
	}
	n.conns[pc] = struct{}{}
	return true
}

func (n *Network) untrack(pc *peerConn) {
	n.connLock.Lock()
	defer n.connLock.Unlock()
	delete(n.conns, pc)
}

func (n *Network) closeConn(pc *peerConn) {
	n.untrack(pc)
	pc.Close()
}

func (n *Network) isShutdown() bool {
	return n.ctx.Err() != nil
}

// Finalize closes the listener and every connection, then waits for the
// goroutines reading them. It can be called more than once.
func (n *Network) Finalize(ctx context.Context) error {
	n.finalizeOnce.Do(func() {
		var result *multierror.Error

		n.connLock.Lock()
		n.cancel()
		conns := make([]*peerConn, 0, len(n.conns))
		for pc := range n.conns {
			conns = append(conns, pc)
		}
		n.conns = make(map[*peerConn]struct{})
		n.connLock.Unlock()

		if err := n.stream.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		for _, pc := range conns {
			if err := pc.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				result = multierror.Append(result, err)
			}
		}

		done := make(chan struct{})
		go func() {
			n.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			result = multierror.Append(result, ctx.Err())
		}

		n.outgoing = make(map[types.NodeID]*peerConn)
		n.addresses = make(map[string]types.NodeID)

		n.logger.WithField("connections", len(conns)).Info("Network finalized")
		n.finalizeErr = result.ErrorOrNil()
	})
	return n.finalizeErr
}
