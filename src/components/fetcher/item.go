package fetcher

import (
	"context"

	"github.com/mosaicnetworks/joiner/src/effect"
	"github.com/mosaicnetworks/joiner/src/types"
)

// ItemKind tells a Fetcher how to identify, validate and store items of type
// T identified by I.
type ItemKind[I comparable, T any] struct {
	Tag      types.Tag
	ID       func(T) I
	Validate func(T) error

	// GetLocally looks the item up in storage. The future resolves to false
	// if it is absent.
	GetLocally func(eb effect.Builder, id I) effect.Future[effect.FetchResult[T]]

	// PutLocally stores an item received from a peer.
	PutLocally func(eb effect.Builder, item T) effect.Future[bool]
}

func storedResult[T any](item T, found bool) effect.FetchResult[T] {
	return effect.FetchResult[T]{Item: item, Source: types.StorageSource(), Found: found}
}

// BlockKind fetches linear-chain blocks by hash.
func BlockKind() ItemKind[types.BlockHash, *types.Block] {
	return ItemKind[types.BlockHash, *types.Block]{
		Tag:      types.TagBlock,
		ID:       func(b *types.Block) types.BlockHash { return b.Hash },
		Validate: func(b *types.Block) error { return b.Verify() },
		GetLocally: func(eb effect.Builder, id types.BlockHash) effect.Future[effect.FetchResult[*types.Block]] {
			get := eb.GetBlock(id)
			return func(ctx context.Context) (effect.FetchResult[*types.Block], error) {
				b, err := get(ctx)
				return storedResult(b, b != nil), err
			}
		},
		PutLocally: func(eb effect.Builder, b *types.Block) effect.Future[bool] {
			return eb.PutBlock(b)
		},
	}
}

// BlockByHeightKind fetches linear-chain blocks by height.
func BlockByHeightKind() ItemKind[uint64, *types.BlockByHeight] {
	return ItemKind[uint64, *types.BlockByHeight]{
		Tag: types.TagBlockByHeight,
		ID:  func(b *types.BlockByHeight) uint64 { return b.Height },
		Validate: func(b *types.BlockByHeight) error {
			if b.Block == nil {
				return nil
			}
			return b.Block.Verify()
		},
		GetLocally: func(eb effect.Builder, height uint64) effect.Future[effect.FetchResult[*types.BlockByHeight]] {
			get := eb.GetBlockAtHeight(height)
			return func(ctx context.Context) (effect.FetchResult[*types.BlockByHeight], error) {
				b, err := get(ctx)
				if b == nil {
					return storedResult[*types.BlockByHeight](nil, false), err
				}
				return storedResult(types.NewBlockByHeight(b), true), err
			}
		},
		PutLocally: func(eb effect.Builder, b *types.BlockByHeight) effect.Future[bool] {
			if b.Block == nil {
				return func(ctx context.Context) (bool, error) { return false, nil }
			}
			return eb.PutBlock(b.Block)
		},
	}
}

// DeployKind fetches deploys by hash.
func DeployKind() ItemKind[types.DeployHash, *types.Deploy] {
	return ItemKind[types.DeployHash, *types.Deploy]{
		Tag:      types.TagDeploy,
		ID:       func(d *types.Deploy) types.DeployHash { return d.Hash },
		Validate: func(d *types.Deploy) error { return d.Verify() },
		GetLocally: func(eb effect.Builder, id types.DeployHash) effect.Future[effect.FetchResult[*types.Deploy]] {
			get := eb.GetDeploys([]types.DeployHash{id})
			return func(ctx context.Context) (effect.FetchResult[*types.Deploy], error) {
				ds, err := get(ctx)
				if len(ds) != 1 || ds[0] == nil {
					return storedResult[*types.Deploy](nil, false), err
				}
				return storedResult(ds[0], true), err
			}
		},
		PutLocally: func(eb effect.Builder, d *types.Deploy) effect.Future[bool] {
			return eb.PutDeploy(d)
		},
	}
}
