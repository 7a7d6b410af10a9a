/*
Package network implements the TCP transport between nodes.

Every node listens on a TCP port and dials the bootstrap addresses of its
configuration. Connections start with a handshake in both directions: each
side sends its public key and public address, signed with an ephemeral
secp256k1 key. The hash of that public key is the NodeID of the node for the
lifetime of the process.

After the handshake, frames are MessagePack encoded envelopes carrying a
protocol.Message. Messages are only ever sent on connections we dialled; a
node that receives a connection from a peer it is not connected to dials it
back. Every frame read on any connection is announced to the reactor as a
MessageReceived announcement.

The network also owns the timer that periodically gossips our own address so
that peers learn how to reach us.
*/
package network
