package app

import (
	"context"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
)

// LiteAPI is the part of ton.APIClient used by the fetcher.
// Client gives raw lite server queries, such as block lookup by logical time or unix time.
type LiteAPI interface {
	Client() ton.LiteClient

	GetMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
	LookupBlock(ctx context.Context, workchain int32, shard int64, seqno uint32) (*ton.BlockIDExt, error)
	GetBlockShardsInfo(ctx context.Context, master *ton.BlockIDExt) ([]*ton.BlockIDExt, error)
	GetBlockData(ctx context.Context, block *ton.BlockIDExt) (*tlb.Block, error)
	GetBlockTransactionsV2(ctx context.Context, block *ton.BlockIDExt, count uint32, after ...*ton.TransactionID3) ([]ton.TransactionShortInfo, bool, error)
	GetTransaction(ctx context.Context, block *ton.BlockIDExt, addr *address.Address, lt uint64) (*tlb.Transaction, error)
}

var _ LiteAPI = (*ton.APIClient)(nil)

type FetcherConfig struct {
	API LiteAPI `validate:"required"`

	// LastMasterTTL is how long the last masterchain block is served from cache.
	LastMasterTTL time.Duration
	CacheSize     int
}
