package storage

import "fmt"

// ErrKind classifies the errors returned by a Store.
type ErrKind uint8

const (
	// NotFound means no item is stored under the key.
	NotFound ErrKind = iota
	// Empty means the store holds no block yet.
	Empty
	// Closed means the store was closed before the call.
	Closed
)

// Error is a failed store access. Item names what was looked up: a block, a
// deploy, an execution result.
type Error struct {
	Item string
	Key  string
	Kind ErrKind
}

func storeError(item string, kind ErrKind, key string) *Error {
	return &Error{Item: item, Key: key, Kind: kind}
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("%s %s not found", e.Item, e.Key)
	case Empty:
		return fmt.Sprintf("no %s stored", e.Item)
	case Closed:
		return fmt.Sprintf("store closed, cannot write %s %s", e.Item, e.Key)
	default:
		return fmt.Sprintf("%s %s: unknown store error", e.Item, e.Key)
	}
}

// IsKind reports whether err is a store Error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
