package fetcher

import (
	"time"

	"github.com/xssnick/tonutils-go/ton"

	"github.com/tonindexer/blockscan/internal/core"
	"github.com/tonindexer/blockscan/lru"
)

type blockKey struct {
	core.ShardKey
	SeqNo uint32
}

func getBlockKey(b *core.BlockID) blockKey {
	return blockKey{ShardKey: b.ShardKey(), SeqNo: b.SeqNo}
}

// blocksCache keeps recently used blocks. Blocks and headers never change,
// so only the last masterchain block expires.
type blocksCache struct {
	last       *lru.Cache[struct{}, *ton.BlockIDExt]
	masters    *lru.Cache[uint32, *ton.BlockIDExt]
	shardsInfo *lru.Cache[uint32, []*ton.BlockIDExt]
	headers    *lru.Cache[blockKey, *core.BlockHeader]
}

func newBlocksCache(size int, lastTTL time.Duration) *blocksCache {
	return &blocksCache{
		last:       lru.New[struct{}, *ton.BlockIDExt](1, lastTTL),
		masters:    lru.New[uint32, *ton.BlockIDExt](size, 0),
		shardsInfo: lru.New[uint32, []*ton.BlockIDExt](size, 0),
		headers:    lru.New[blockKey, *core.BlockHeader](size, 0),
	}
}
