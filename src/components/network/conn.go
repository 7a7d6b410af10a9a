package network

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/joiner/src/crypto"
	"github.com/mosaicnetworks/joiner/src/crypto/keys"
	"github.com/mosaicnetworks/joiner/src/protocol"
	"github.com/mosaicnetworks/joiner/src/types"
	"github.com/ugorji/go/codec"
)

const bufSize = 64 * 1024

var (
	// ErrBadHandshake is returned when the first frame of a connection is not
	// a valid handshake.
	ErrBadHandshake = errors.New("invalid handshake")
	// ErrUnexpectedFrame is returned when a connection carries something
	// other than a message after its handshake.
	ErrUnexpectedFrame = errors.New("unexpected frame")
)

// handshake introduces a node on a new connection.
type handshake struct {
	PublicKey []byte
	Address   string
	Signature []byte
}

// frame is the unit written on the wire. Exactly one field is set.
type frame struct {
	Handshake *handshake
	Message   *protocol.Message
}

func handshakeDigest(publicKey []byte, address string) ([]byte, error) {
	raw, err := types.Encode(struct {
		PublicKey []byte
		Address   string
	}{publicKey, address})
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(raw), nil
}

func newHandshake(sk *btcec.PrivateKey, address string) (*handshake, error) {
	pub := keys.PublicKeyBytes(sk.PubKey())
	d, err := handshakeDigest(pub, address)
	if err != nil {
		return nil, err
	}
	sig, err := keys.Sign(sk, d)
	if err != nil {
		return nil, err
	}
	return &handshake{PublicKey: pub, Address: address, Signature: sig}, nil
}

// verify checks the signature and returns the NodeID of the sender.
func (h *handshake) verify() (types.NodeID, error) {
	pub, err := keys.ParsePublicKey(h.PublicKey)
	if err != nil {
		return types.NodeID{}, fmt.Errorf("%v: %v", ErrBadHandshake, err)
	}
	d, err := handshakeDigest(h.PublicKey, h.Address)
	if err != nil {
		return types.NodeID{}, err
	}
	if !keys.Verify(pub, d, h.Signature) {
		return types.NodeID{}, fmt.Errorf("%v: bad signature", ErrBadHandshake)
	}
	return types.NodeIDFromPublicKey(pub), nil
}

// peerConn wraps a connection with its codec. Writes are serialized; reads
// happen on a single goroutine.
type peerConn struct {
	peer    types.NodeID
	address string
	conn    net.Conn
	timeout time.Duration

	r   *bufio.Reader
	w   *bufio.Writer
	dec *codec.Decoder
	enc *codec.Encoder

	writeLock sync.Mutex
}

func newPeerConn(conn net.Conn, timeout time.Duration) *peerConn {
	pc := &peerConn{
		conn:    conn,
		timeout: timeout,
		r:       bufio.NewReaderSize(conn, bufSize),
		w:       bufio.NewWriterSize(conn, bufSize),
	}
	pc.dec = codec.NewDecoder(pc.r, types.Handle())
	pc.enc = codec.NewEncoder(pc.w, types.Handle())
	return pc
}

func (pc *peerConn) writeFrame(f *frame) error {
	pc.writeLock.Lock()
	defer pc.writeLock.Unlock()

	if pc.timeout > 0 {
		pc.conn.SetWriteDeadline(time.Now().Add(pc.timeout))
	}
	if err := pc.enc.Encode(f); err != nil {
		return err
	}
	return pc.w.Flush()
}

func (pc *peerConn) readFrame() (*frame, error) {
	var f frame
	if err := pc.dec.Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// send writes a message.
func (pc *peerConn) send(msg protocol.Message) error {
	return pc.writeFrame(&frame{Message: &msg})
}

// readMessage blocks until the next message. There is no read deadline:
// peers may stay silent for long periods.
func (pc *peerConn) readMessage() (protocol.Message, error) {
	f, err := pc.readFrame()
	if err != nil {
		return protocol.Message{}, err
	}
	if f.Message == nil {
		return protocol.Message{}, ErrUnexpectedFrame
	}
	return *f.Message, nil
}

// exchangeHandshakes sends ours and reads theirs. The dialling side writes
// first; the accepting side reads first.
func (pc *peerConn) exchangeHandshakes(ours *handshake, dialled bool) (*handshake, error) {
	if pc.timeout > 0 {
		pc.conn.SetReadDeadline(time.Now().Add(2 * pc.timeout))
		defer pc.conn.SetReadDeadline(time.Time{})
	}

	if dialled {
		if err := pc.writeFrame(&frame{Handshake: ours}); err != nil {
			return nil, err
		}
	}

	f, err := pc.readFrame()
	if err != nil {
		return nil, err
	}
	if f.Handshake == nil {
		return nil, ErrBadHandshake
	}

	peer, err := f.Handshake.verify()
	if err != nil {
		return nil, err
	}
	pc.peer = peer
	pc.address = f.Handshake.Address

	if !dialled {
		if err := pc.writeFrame(&frame{Handshake: ours}); err != nil {
			return nil, err
		}
	}

	return f.Handshake, nil
}

func (pc *peerConn) Close() error {
	return pc.conn.Close()
}
