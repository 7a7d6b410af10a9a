// Package storage implements the storage component: a request/response front
// for a Store holding the linear chain, deploys and execution results.
//
// Each request is served by its own effect, off the dispatch goroutine, so
// the Store implementations must be, and are, safe for concurrent use.
package storage
