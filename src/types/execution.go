package types

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/crypto"
)

// ExecutionResult is the outcome of executing a single deploy.
type ExecutionResult struct {
	DeployHash    DeployHash
	PostStateHash crypto.Digest
	Cost          uint64
	ErrorMessage  string
}

// ExecutionOutcome is the outcome of executing an ordered list of deploys on
// top of a pre-state.
type ExecutionOutcome struct {
	PreStateHash  crypto.Digest
	PostStateHash crypto.Digest
	Results       []ExecutionResult
}

// String ...
func (e *ExecutionOutcome) String() string {
	return fmt.Sprintf("execution %s -> %s (%d deploys)", e.PreStateHash, e.PostStateHash, len(e.Results))
}
