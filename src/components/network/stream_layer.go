package network

import (
	"errors"
	"net"
	"time"
)

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// StreamLayer provides the low level stream abstraction the network runs on.
type StreamLayer interface {
	net.Listener

	// Dial is used to create a new outgoing connection
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}

// TCPStreamLayer implements StreamLayer interface for plain TCP.
type TCPStreamLayer struct {
	advertise string
	listener  *net.TCPListener
}

// NewTCPStreamLayer binds bindAddr. The advertised address, if not empty,
// must resolve to a TCP address; otherwise the bound address must be
// advertisable.
func NewTCPStreamLayer(bindAddr string, advertiseAddr string) (*TCPStreamLayer, error) {
	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	// Try to resolve the advertise address
	var resolvedAdvertise net.Addr
	if advertiseAddr != "" {
		resolvedAdvertise, err = net.ResolveTCPAddr("tcp", advertiseAddr)
		if err != nil {
			list.Close()
			return nil, err
		}
	}

	if resolvedAdvertise == nil {
		resolvedAdvertise = list.Addr()
	}

	// Verify that we have a usable advertise address
	addr, ok := resolvedAdvertise.(*net.TCPAddr)
	if !ok {
		list.Close()
		return nil, errNotTCP
	}
	if addr.IP.IsUnspecified() {
		list.Close()
		return nil, errNotAdvertisable
	}

	return &TCPStreamLayer{
		advertise: advertiseAddr,
		listener:  list.(*net.TCPListener),
	}, nil
}

// Dial implements the StreamLayer interface.
func (t *TCPStreamLayer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("tcp", address, timeout)
}

// Accept implements the net.Listener interface.
func (t *TCPStreamLayer) Accept() (c net.Conn, err error) {
	return t.listener.Accept()
}

// Close implements the net.Listener interface.
func (t *TCPStreamLayer) Close() (err error) {
	return t.listener.Close()
}

// Addr implements the net.Listener interface.
func (t *TCPStreamLayer) Addr() net.Addr {
	return t.listener.Addr()
}

// AdvertiseAddr implements the SteamLayer interface.
func (t *TCPStreamLayer) AdvertiseAddr() string {
	// Use an advertise addr if provided
	if t.advertise != "" {
		return t.advertise
	}
	return t.listener.Addr().String()
}
