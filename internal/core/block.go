package core

import (
	"context"
	"fmt"
)

const (
	MasterWorkchain int32 = -1
	MasterShard     int64 = -0x8000000000000000 // 0x8000000000000000 as a signed shard id
)

type BlockID struct {
	Workchain int32  `json:"workchain"`
	Shard     int64  `json:"shard"`
	SeqNo     uint32 `json:"seq_no"`
	RootHash  []byte `json:"root_hash,omitempty"`
	FileHash  []byte `json:"file_hash,omitempty"`
}

// ShardKey identifies a shard chain regardless of block seqno.
type ShardKey struct {
	Workchain int32
	Shard     int64
}

func (k ShardKey) String() string {
	return fmt.Sprintf("%d:%016x", k.Workchain, uint64(k.Shard))
}

func (b *BlockID) ShardKey() ShardKey {
	return ShardKey{Workchain: b.Workchain, Shard: b.Shard}
}

func (b *BlockID) String() string {
	return fmt.Sprintf("(%d,%016x,%d)", b.Workchain, uint64(b.Shard), b.SeqNo)
}

// BlockRef is a reference to the previous block of a shard chain,
// as stored in the block header.
type BlockRef struct {
	SeqNo    uint32
	EndLT    uint64
	RootHash []byte
	FileHash []byte
}

type BlockHeader struct {
	ID BlockID

	AfterSplit bool
	AfterMerge bool

	Prev1 BlockRef
	Prev2 *BlockRef // set only after merge

	GenUtime uint32
	StartLT  uint64
	EndLT    uint64
}

// StartFrom selects the first masterchain block to scan.
// Zero value means the last known masterchain block.
type StartFrom struct {
	SeqNo *uint32
	LT    *uint64
	UTime *uint32
}

func (f StartFrom) Validate() error {
	var set int
	if f.SeqNo != nil {
		set++
	}
	if f.LT != nil {
		set++
	}
	if f.UTime != nil {
		set++
	}
	if set > 1 {
		return ErrInvalidSelector
	}
	return nil
}

func (f StartFrom) Latest() bool {
	return f.SeqNo == nil && f.LT == nil && f.UTime == nil
}

// ChainClient is the lite-server facing collaborator of the scanner.
type ChainClient interface {
	// LastMasterBlock returns the last masterchain block known to the client.
	LastMasterBlock(ctx context.Context) (*BlockID, error)
	// LookupMaster resolves a masterchain block by exactly one selector.
	LookupMaster(ctx context.Context, from StartFrom) (*BlockID, error)
	// ShardsInfo returns shard tips referenced by the masterchain block.
	ShardsInfo(ctx context.Context, master *BlockID) ([]*BlockID, error)
	BlockHeader(ctx context.Context, b *BlockID) (*BlockHeader, error)
	BlockTransactions(ctx context.Context, b *BlockID) ([]*Transaction, error)
}
