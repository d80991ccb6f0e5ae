package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/core"
)

const (
	rootShard  = core.MasterShard // the whole basechain
	leftShard  = int64(0x4000000000000000)
	rightShard = int64(-0x4000000000000000) // 0xc000000000000000
)

type blockKey struct {
	core.ShardKey
	SeqNo uint32
}

func keyOf(b *core.BlockID) blockKey {
	return blockKey{ShardKey: b.ShardKey(), SeqNo: b.SeqNo}
}

func hashOf(kind string, shard int64, seq uint32) []byte {
	return []byte(fmt.Sprintf("%s:%x:%d", kind, uint64(shard), seq))
}

func shardBlock(shard int64, seq uint32) *core.BlockID {
	return &core.BlockID{
		Workchain: 0,
		Shard:     shard,
		SeqNo:     seq,
		RootHash:  hashOf("root", shard, seq),
		FileHash:  hashOf("file", shard, seq),
	}
}

func ref(shard int64, seq uint32) core.BlockRef {
	return core.BlockRef{SeqNo: seq, RootHash: hashOf("root", shard, seq), FileHash: hashOf("file", shard, seq)}
}

// testChain is an in-memory chain client.
type testChain struct {
	mx sync.Mutex

	last    uint32
	masters map[uint32][]*core.BlockID // masterchain seqno -> shard tips
	headers map[blockKey]*core.BlockHeader
	txs     map[blockKey][]*core.Transaction
	txErr   map[blockKey]error

	shardsErr      error
	onTransactions func(b *core.BlockID)

	lookups       []uint32
	headerFetches int
	calls         int
}

var _ core.ChainClient = (*testChain)(nil)

func newTestChain() *testChain {
	return &testChain{
		masters: map[uint32][]*core.BlockID{},
		headers: map[blockKey]*core.BlockHeader{},
		txs:     map[blockKey][]*core.Transaction{},
		txErr:   map[blockKey]error{},
	}
}

func masterBlock(seq uint32) *core.BlockID {
	return &core.BlockID{
		Workchain: core.MasterWorkchain,
		Shard:     core.MasterShard,
		SeqNo:     seq,
		RootHash:  hashOf("root", core.MasterShard, seq),
		FileHash:  hashOf("file", core.MasterShard, seq),
	}
}

func (c *testChain) setLast(seq uint32) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.last = seq
}

func (c *testChain) addMaster(seq uint32, tips ...*core.BlockID) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.masters[seq] = tips
}

// addChain adds blocks [from; to] of one shard chain, each referencing the previous one.
func (c *testChain) addChain(shard int64, from, to uint32) {
	c.mx.Lock()
	defer c.mx.Unlock()

	for seq := from; seq <= to; seq++ {
		b := shardBlock(shard, seq)
		c.headers[keyOf(b)] = &core.BlockHeader{ID: *b, Prev1: ref(shard, seq-1)}
		c.txs[keyOf(b)] = []*core.Transaction{
			{Workchain: 0, Shard: shard, BlockSeqNo: seq, LT: uint64(seq) * 10, Hash: hashOf("tx1", shard, seq)},
			{Workchain: 0, Shard: shard, BlockSeqNo: seq, LT: uint64(seq)*10 + 1, Hash: hashOf("tx2", shard, seq)},
		}
	}
}

// addSplit adds the first blocks of both children of the parent shard.
func (c *testChain) addSplit(parent int64, parentSeq, childSeq uint32) {
	c.mx.Lock()
	defer c.mx.Unlock()

	for _, child := range []int64{core.ShardChild(parent, true), core.ShardChild(parent, false)} {
		b := shardBlock(child, childSeq)
		c.headers[keyOf(b)] = &core.BlockHeader{ID: *b, AfterSplit: true, Prev1: ref(parent, parentSeq)}
	}
}

// addMerge adds the first block of the shard merged from its children.
func (c *testChain) addMerge(shard int64, seq, leftSeq, rightSeq uint32) {
	c.mx.Lock()
	defer c.mx.Unlock()

	b := shardBlock(shard, seq)
	right := ref(core.ShardChild(shard, false), rightSeq)
	c.headers[keyOf(b)] = &core.BlockHeader{
		ID:         *b,
		AfterMerge: true,
		Prev1:      ref(core.ShardChild(shard, true), leftSeq),
		Prev2:      &right,
	}
}

func (c *testChain) LastMasterBlock(_ context.Context) (*core.BlockID, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.calls++
	return masterBlock(c.last), nil
}

func (c *testChain) LookupMaster(_ context.Context, from core.StartFrom) (*core.BlockID, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.calls++
	if from.SeqNo == nil {
		return nil, errors.Wrap(core.ErrNotAvailable, "lookup by lt or utime")
	}
	if _, ok := c.masters[*from.SeqNo]; !ok {
		return nil, errors.Wrapf(core.ErrNotFound, "masterchain block %d", *from.SeqNo)
	}
	c.lookups = append(c.lookups, *from.SeqNo)
	return masterBlock(*from.SeqNo), nil
}

func (c *testChain) ShardsInfo(_ context.Context, master *core.BlockID) ([]*core.BlockID, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.calls++
	if c.shardsErr != nil {
		return nil, c.shardsErr
	}
	tips, ok := c.masters[master.SeqNo]
	if !ok {
		return nil, errors.Wrapf(core.ErrNotFound, "masterchain block %d", master.SeqNo)
	}
	return tips, nil
}

func (c *testChain) BlockHeader(_ context.Context, b *core.BlockID) (*core.BlockHeader, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.calls++
	c.headerFetches++
	h, ok := c.headers[keyOf(b)]
	if !ok {
		return nil, errors.Wrapf(core.ErrNotFound, "block %s", b)
	}
	return h, nil
}

func (c *testChain) BlockTransactions(_ context.Context, b *core.BlockID) ([]*core.Transaction, error) {
	c.mx.Lock()
	c.calls++
	txs, err, hook := c.txs[keyOf(b)], c.txErr[keyOf(b)], c.onTransactions
	c.mx.Unlock()

	if hook != nil {
		hook(b)
	}
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *testChain) callCount() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.calls
}

func (c *testChain) lookedUp() []uint32 {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]uint32(nil), c.lookups...)
}
