package fetcher

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xssnick/tonutils-go/tl"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/tonindexer/blockscan/internal/core"
)

// liteServer.lookupBlock modes
const (
	lookupByLT    = 2
	lookupByUTime = 4
)

const lsErrBlockNotFound = 651

func mapBlockID(b *ton.BlockIDExt) *core.BlockID {
	return &core.BlockID{
		Workchain: b.Workchain,
		Shard:     b.Shard,
		SeqNo:     b.SeqNo,
		RootHash:  b.RootHash,
		FileHash:  b.FileHash,
	}
}

func toBlockIDExt(b *core.BlockID) *ton.BlockIDExt {
	return &ton.BlockIDExt{
		Workchain: b.Workchain,
		Shard:     b.Shard,
		SeqNo:     b.SeqNo,
		RootHash:  b.RootHash,
		FileHash:  b.FileHash,
	}
}

func mapBlockRef(ref *tlb.ExtBlkRef) core.BlockRef {
	return core.BlockRef{
		SeqNo:    ref.SeqNo,
		EndLT:    ref.EndLt,
		RootHash: ref.RootHash,
		FileHash: ref.FileHash,
	}
}

func mapBlockHeader(b *core.BlockID, h *tlb.BlockHeader) *core.BlockHeader {
	ret := &core.BlockHeader{
		ID:         *b,
		AfterSplit: h.AfterSplit,
		AfterMerge: h.AfterMerge,
		Prev1:      mapBlockRef(&h.PrevRef.Prev1),
		GenUtime:   h.GenUtime,
		StartLT:    h.StartLt,
		EndLT:      h.EndLt,
	}
	if h.AfterMerge && h.PrevRef.Prev2 != nil {
		prev2 := mapBlockRef(h.PrevRef.Prev2)
		ret.Prev2 = &prev2
	}
	return ret
}

func (s *Service) lookupMaster(ctx context.Context, seqNo uint32) (*ton.BlockIDExt, error) {
	if m, ok := s.blocks.masters.Get(seqNo); ok {
		return m, nil
	}

	master, err := s.API.LookupBlock(ctx, core.MasterWorkchain, core.MasterShard, seqNo)
	if err != nil {
		if errors.Is(err, ton.ErrBlockNotFound) {
			return nil, errors.Wrapf(core.ErrNotFound, "lookup masterchain block %d: %s", seqNo, err)
		}
		return nil, errors.Wrapf(err, "lookup masterchain block %d", seqNo)
	}

	s.blocks.masters.Put(seqNo, master)
	return master, nil
}

func (s *Service) LastMasterBlock(ctx context.Context) (*core.BlockID, error) {
	if m, ok := s.blocks.last.Get(struct{}{}); ok {
		return mapBlockID(m), nil
	}

	master, err := s.API.GetMasterchainInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get masterchain info")
	}

	s.blocks.last.Put(struct{}{}, master)
	s.blocks.masters.Put(master.SeqNo, master)
	return mapBlockID(master), nil
}

func (s *Service) LookupMaster(ctx context.Context, from core.StartFrom) (*core.BlockID, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}

	switch {
	case from.SeqNo != nil:
		m, err := s.lookupMaster(ctx, *from.SeqNo)
		if err != nil {
			return nil, err
		}
		return mapBlockID(m), nil

	case from.LT != nil:
		lt := *from.LT
		return s.findMaster(ctx, &ton.LookupBlock{Mode: lookupByLT, LT: lt},
			func(h *core.BlockHeader) bool { return h.EndLT < lt })

	case from.UTime != nil:
		utime := *from.UTime
		return s.findMaster(ctx, &ton.LookupBlock{Mode: lookupByUTime, UTime: utime},
			func(h *core.BlockHeader) bool { return h.GenUtime < utime })

	default:
		return s.LastMasterBlock(ctx)
	}
}

// queryMaster resolves a masterchain block with the lite server lookupBlock query.
func (s *Service) queryMaster(ctx context.Context, req *ton.LookupBlock) (*ton.BlockIDExt, error) {
	var resp tl.Serializable

	req.ID = &ton.BlockInfoShort{Workchain: core.MasterWorkchain, Shard: core.MasterShard}

	err := s.API.Client().QueryLiteserver(ctx, *req, &resp)
	if err != nil {
		return nil, errors.Wrapf(err, "lookup masterchain block (lt = %d, utime = %d)", req.LT, req.UTime)
	}

	switch t := resp.(type) {
	case ton.BlockHeader:
		if t.ID == nil {
			return nil, errors.New("lookup masterchain block: empty block id")
		}
		return t.ID, nil
	case ton.LSError:
		if t.Code == lsErrBlockNotFound {
			return nil, errors.Wrapf(core.ErrNotFound, "lookup masterchain block (lt = %d, utime = %d): %s", req.LT, req.UTime, t.Text)
		}
		return nil, errors.Wrapf(t, "lookup masterchain block (lt = %d, utime = %d)", req.LT, req.UTime)
	}
	return nil, errors.Errorf("lookup masterchain block: unexpected response %T", resp)
}

// findMaster returns the first masterchain block for which before returns false.
// The lite server resolves the block near the target, and the result is moved to the exact boundary.
// If the query fails, masterchain is searched backwards from the last block.
func (s *Service) findMaster(ctx context.Context, req *ton.LookupBlock, before func(h *core.BlockHeader) bool) (*core.BlockID, error) {
	m, err := s.queryMaster(ctx, req)
	if errors.Is(err, core.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("falling back to masterchain search")
		return s.searchMaster(ctx, before)
	}
	s.blocks.masters.Put(m.SeqNo, m)

	return s.settleMaster(ctx, mapBlockID(m), before)
}

// settleMaster moves from a block close to the boundary to the first block for which before returns false.
func (s *Service) settleMaster(ctx context.Context, cur *core.BlockID, before func(h *core.BlockHeader) bool) (*core.BlockID, error) {
	for {
		h, err := s.BlockHeader(ctx, cur)
		if err != nil {
			return nil, err
		}
		if !before(h) {
			break
		}
		next, err := s.lookupMaster(ctx, cur.SeqNo+1)
		if err != nil {
			return nil, err
		}
		cur = mapBlockID(next)
	}

	for cur.SeqNo > 1 {
		prev, err := s.lookupMaster(ctx, cur.SeqNo-1)
		if err != nil {
			return nil, err
		}
		h, err := s.BlockHeader(ctx, mapBlockID(prev))
		if err != nil {
			return nil, err
		}
		if before(h) {
			break
		}
		cur = mapBlockID(prev)
	}

	return cur, nil
}

// searchSeqNo returns the first seqno in [lo; hi] for which before returns false.
// before must be monotonic: true for some prefix of the range and false after it.
func searchSeqNo(ctx context.Context, lo, hi uint32, before func(ctx context.Context, seqNo uint32) (bool, error)) (uint32, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2

		ok, err := before(ctx, mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// gallopSeqNo returns the first seqno in [1; last] for which before returns false,
// given that before(last) is false. Probes go back from last in doubling steps,
// so recent targets never touch old history.
func gallopSeqNo(ctx context.Context, last uint32, before func(ctx context.Context, seqNo uint32) (bool, error)) (uint32, error) {
	hi := last
	for step := uint64(1); hi > 1; step *= 2 {
		lo := uint32(1)
		if uint64(hi-1) > step {
			lo = hi - uint32(step)
		}

		ok, err := before(ctx, lo)
		if err != nil {
			return 0, err
		}
		if ok {
			return searchSeqNo(ctx, lo+1, hi, before)
		}
		hi = lo
	}
	return 1, nil
}

// searchMaster finds the first masterchain block for which before returns false.
func (s *Service) searchMaster(ctx context.Context, before func(h *core.BlockHeader) bool) (*core.BlockID, error) {
	last, err := s.LastMasterBlock(ctx)
	if err != nil {
		return nil, err
	}

	h, err := s.BlockHeader(ctx, last)
	if err != nil {
		return nil, err
	}
	if before(h) {
		return nil, errors.Wrapf(core.ErrNotFound, "the last masterchain block %d is too old", last.SeqNo)
	}

	seqNo, err := gallopSeqNo(ctx, last.SeqNo, func(ctx context.Context, seqNo uint32) (bool, error) {
		m, err := s.lookupMaster(ctx, seqNo)
		if err != nil {
			return false, err
		}
		h, err := s.BlockHeader(ctx, mapBlockID(m))
		if err != nil {
			return false, err
		}
		return before(h), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "search masterchain block")
	}

	m, err := s.lookupMaster(ctx, seqNo)
	if err != nil {
		return nil, err
	}
	return mapBlockID(m), nil
}

func (s *Service) ShardsInfo(ctx context.Context, master *core.BlockID) ([]*core.BlockID, error) {
	shards, ok := s.blocks.shardsInfo.Get(master.SeqNo)
	if !ok {
		var err error

		shards, err = s.API.GetBlockShardsInfo(ctx, toBlockIDExt(master))
		if err != nil {
			return nil, errors.Wrap(err, "get masterchain shards info")
		}
		if len(shards) == 0 {
			return nil, errors.Errorf("masterchain block %d has no shards", master.SeqNo)
		}
		s.blocks.shardsInfo.Put(master.SeqNo, shards)
	}

	ret := make([]*core.BlockID, 0, len(shards))
	for _, shard := range shards {
		ret = append(ret, mapBlockID(shard))
	}
	return ret, nil
}

func (s *Service) BlockHeader(ctx context.Context, b *core.BlockID) (*core.BlockHeader, error) {
	if h, ok := s.blocks.headers.Get(getBlockKey(b)); ok {
		return h, nil
	}

	defer core.Timer(time.Now(), "BlockHeader", b)

	data, err := s.API.GetBlockData(ctx, toBlockIDExt(b))
	if err != nil {
		return nil, errors.Wrapf(err, "get block data %s", b)
	}

	h := mapBlockHeader(b, &data.BlockInfo)
	s.blocks.headers.Put(getBlockKey(b), h)
	return h, nil
}
