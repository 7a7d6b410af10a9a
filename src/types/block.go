package types

import (
	"fmt"

	"github.com/mosaicnetworks/joiner/src/crypto"
)

// BlockHash is the hash of a block header.
type BlockHash crypto.Digest

// BlockHashFromHex decodes a hex encoded block hash.
func BlockHashFromHex(s string) (BlockHash, error) {
	d, err := crypto.DigestFromHex(s)
	if err != nil {
		return BlockHash{}, err
	}
	return BlockHash(d), nil
}

// IsZero reports whether h is the zero hash, which is the parent of the
// genesis block.
func (h BlockHash) IsZero() bool {
	return crypto.Digest(h).IsZero()
}

// Hex ...
func (h BlockHash) Hex() string {
	return crypto.Digest(h).Hex()
}

// String ...
func (h BlockHash) String() string {
	return "block-hash " + crypto.Digest(h).String()
}

// BlockHeader is the hashed part of a Block.
type BlockHeader struct {
	ParentHash      BlockHash
	GlobalStateHash crypto.Digest // post-state after executing DeployHashes
	BodyHash        crypto.Digest
	DeployHashes    []DeployHash
	Random          bool
	SwitchBlock     bool
	Timestamp       Timestamp
	Era             uint64
	Height          uint64
	Proposer        string // hex encoded public key
}

// Hash computes the hash of the header.
func (h *BlockHeader) Hash() (BlockHash, error) {
	bytes, err := Encode(h)
	if err != nil {
		return BlockHash{}, err
	}
	return BlockHash(crypto.Hash(bytes)), nil
}

// IsGenesisChild reports whether the block has no parent.
func (h *BlockHeader) IsGenesisChild() bool {
	return h.Height == 0 || h.ParentHash.IsZero()
}

// Block is an executed, finalized block of the linear chain.
type Block struct {
	Hash   BlockHash
	Header BlockHeader
	Body   []byte
}

// NewBlock creates a Block from a finalized block and the post-state obtained
// by executing it on top of parent.
func NewBlock(parentHash BlockHash, postState crypto.Digest, fb *FinalizedBlock) (*Block, error) {
	header := BlockHeader{
		ParentHash:      parentHash,
		GlobalStateHash: postState,
		BodyHash:        crypto.HashAll(),
		DeployHashes:    fb.ProtoBlock.Deploys,
		Random:          fb.ProtoBlock.Random,
		SwitchBlock:     fb.SwitchBlock,
		Timestamp:       fb.Timestamp,
		Era:             fb.Era,
		Height:          fb.Height,
		Proposer:        fb.Proposer,
	}
	hash, err := header.Hash()
	if err != nil {
		return nil, err
	}
	return &Block{Hash: hash, Header: header}, nil
}

// Verify checks that the claimed hash matches the header.
func (b *Block) Verify() error {
	hash, err := b.Header.Hash()
	if err != nil {
		return err
	}
	if hash != b.Hash {
		return fmt.Errorf("block hash mismatch: claimed %s, computed %s", b.Hash, hash)
	}
	return nil
}

// Height ...
func (b *Block) Height() uint64 {
	return b.Header.Height
}

// String ...
func (b *Block) String() string {
	return fmt.Sprintf("block #%d, %s, era %d", b.Header.Height, b.Hash, b.Header.Era)
}

// BlockByHeight is the answer to a request for the block at a given height.
// Block is nil when the responder does not have that height.
type BlockByHeight struct {
	Height uint64
	Block  *Block
}

// NewBlockByHeight ...
func NewBlockByHeight(b *Block) *BlockByHeight {
	return &BlockByHeight{Height: b.Header.Height, Block: b}
}

// AbsentBlockByHeight ...
func AbsentBlockByHeight(height uint64) *BlockByHeight {
	return &BlockByHeight{Height: height}
}

// IsAbsent ...
func (b *BlockByHeight) IsAbsent() bool {
	return b.Block == nil
}

// String ...
func (b *BlockByHeight) String() string {
	if b.Block == nil {
		return fmt.Sprintf("block at height %d absent", b.Height)
	}
	return fmt.Sprintf("block at height %d: %s", b.Height, b.Block.Hash)
}

// ProtoBlock is a proposal: an ordered set of deploys not yet finalized.
type ProtoBlock struct {
	Deploys []DeployHash
	Random  bool
}

// Hash ...
func (p *ProtoBlock) Hash() (crypto.Digest, error) {
	bytes, err := Encode(p)
	if err != nil {
		return crypto.Digest{}, err
	}
	return crypto.Hash(bytes), nil
}

// String ...
func (p *ProtoBlock) String() string {
	return fmt.Sprintf("proto-block with %d deploys", len(p.Deploys))
}

// FinalizedBlock is a ProtoBlock consensus has agreed on, before execution.
type FinalizedBlock struct {
	ProtoBlock  ProtoBlock
	Timestamp   Timestamp
	SwitchBlock bool
	Era         uint64
	Height      uint64
	Proposer    string
}

// String ...
func (f *FinalizedBlock) String() string {
	return fmt.Sprintf("finalized block #%d in era %d", f.Height, f.Era)
}
