package scanner

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/core"
)

type headerFunc func(ctx context.Context, b *core.BlockID) (*core.BlockHeader, error)

func isSeen(seen map[core.ShardKey]uint32, b *core.BlockID) bool {
	no, ok := seen[b.ShardKey()]
	return ok && no >= b.SeqNo
}

func prevBlocks(b *core.BlockID, h *core.BlockHeader) []*core.BlockID {
	if b.SeqNo == 0 {
		return nil
	}

	if h.Prev2 == nil {
		shard := b.Shard
		if h.AfterSplit {
			shard = core.ShardParent(b.Shard)
		}
		return []*core.BlockID{{
			Workchain: b.Workchain,
			Shard:     shard,
			SeqNo:     h.Prev1.SeqNo,
			RootHash:  h.Prev1.RootHash,
			FileHash:  h.Prev1.FileHash,
		}}
	}

	return []*core.BlockID{{
		Workchain: b.Workchain,
		Shard:     core.ShardChild(b.Shard, true),
		SeqNo:     h.Prev1.SeqNo,
		RootHash:  h.Prev1.RootHash,
		FileHash:  h.Prev1.FileHash,
	}, {
		Workchain: b.Workchain,
		Shard:     core.ShardChild(b.Shard, false),
		SeqNo:     h.Prev2.SeqNo,
		RootHash:  h.Prev2.RootHash,
		FileHash:  h.Prev2.FileHash,
	}}
}

// WalkUnseen goes back from the root shard block over the previous block references
// and returns all blocks newer than the seen seqno of their shard chain, ancestors first.
// This fills the holes in shard chains between two masterchain blocks, across shard splits and merges.
func WalkUnseen(ctx context.Context, root *core.BlockID, seen map[core.ShardKey]uint32, getHeader headerFunc) ([]*core.BlockID, error) {
	var visited []*core.BlockID

	stack := []*core.BlockID{root}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if isSeen(seen, b) {
			continue
		}
		visited = append(visited, b)

		h, err := getHeader(ctx, b)
		if err != nil {
			return nil, errors.Wrapf(err, "get block header %s", b)
		}

		stack = append(stack, prevBlocks(b, h)...)
	}

	// the same block can be reached through both parents of a merge,
	// keep the occurrence closest to the start
	type blockKey struct {
		core.ShardKey
		SeqNo uint32
	}
	added := make(map[blockKey]struct{}, len(visited))

	ret := make([]*core.BlockID, 0, len(visited))
	for i := len(visited) - 1; i >= 0; i-- {
		b := visited[i]
		k := blockKey{ShardKey: b.ShardKey(), SeqNo: b.SeqNo}
		if _, ok := added[k]; ok || isSeen(seen, b) {
			continue
		}
		added[k] = struct{}{}
		ret = append(ret, b)
	}

	return ret, nil
}
