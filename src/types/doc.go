// Package types holds the chain data shared by every component of the joining
// node: blocks, deploys, node identities, timestamps, and the MessagePack
// codec used for both the wire and the store.
package types
