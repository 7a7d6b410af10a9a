// Package fetcher implements a generic fetcher: given the id of an item and a
// peer, it returns the item from local storage if present and otherwise asks
// the peer for it, answering "absent" if the peer does not respond in time.
//
// One Fetcher instance exists per item kind. Kinds are described by an
// ItemKind table.
package fetcher
