// Package keys implements the validator key-pairs used by a joining node.
//
// Keys live on the secp256k1 curve (btcsuite's btcec implementation). The
// public key identifies the validator in the chainspec's stake table, and its
// hash is the node's network identity. The secret key is kept in a plain hex
// keyfile under the data directory whose permissions must exclude group and
// other.
package keys
