package core

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randShards(n int) []uint64 {
	rnd := rand.New(rand.NewSource(42)) //nolint:gosec // test data

	ret := []uint64{
		0x8000000000000000, // whole workchain
		0x4000000000000000,
		0xc000000000000000,
		0x2,
		0xfffffffffffffffe,
	}
	for len(ret) < n {
		s := rnd.Uint64()
		if LowerBit64(s) == 1 || s == 0 {
			continue // leaf with no children
		}
		ret = append(ret, s)
	}
	return ret
}

func TestLowerBit64(t *testing.T) {
	require.Equal(t, uint64(0x8000000000000000), LowerBit64(0x8000000000000000))
	require.Equal(t, uint64(0x4000000000000000), LowerBit64(0xc000000000000000))
	require.Equal(t, uint64(1), LowerBit64(0xffffffffffffffff))
	require.Equal(t, uint64(0), LowerBit64(0))
}

func TestChildShard(t *testing.T) {
	require.Equal(t, uint64(0x4000000000000000), ChildShard(0x8000000000000000, true))
	require.Equal(t, uint64(0xc000000000000000), ChildShard(0x8000000000000000, false))
	require.Equal(t, uint64(0xa000000000000000), ChildShard(0xc000000000000000, true))
	require.Equal(t, uint64(0xe000000000000000), ChildShard(0xc000000000000000, false))
}

func TestParentShard(t *testing.T) {
	require.Equal(t, uint64(0x8000000000000000), ParentShard(0x4000000000000000))
	require.Equal(t, uint64(0x8000000000000000), ParentShard(0xc000000000000000))
	require.Equal(t, uint64(0xc000000000000000), ParentShard(0xe000000000000000))

	// the root shard has no parent, its parent wraps around to zero
	require.Equal(t, uint64(0), ParentShard(0x8000000000000000))
}

func TestShard_SplitMergeInverse(t *testing.T) {
	for _, s := range randShards(1000) {
		require.Equal(t, s, ParentShard(ChildShard(s, true)), "shard %x", s)
		require.Equal(t, s, ParentShard(ChildShard(s, false)), "shard %x", s)
	}
}

func TestShard_ChildrenDiffer(t *testing.T) {
	for _, s := range randShards(1000) {
		l, r := ChildShard(s, true), ChildShard(s, false)

		half := LowerBit64(s) >> 1
		require.Equal(t, half, LowerBit64(l))
		require.Equal(t, half, LowerBit64(r))

		// both children keep the parent prefix above the split bit
		mask := ^(LowerBit64(s)<<1 - 1)
		require.Equal(t, s&mask, l&mask)
		require.Equal(t, s&mask, r&mask)

		// and differ in exactly the split position
		require.Equal(t, 1, bits.OnesCount64((l^r)&LowerBit64(s)))
		require.Equal(t, l^r, LowerBit64(s))
	}
}

func TestShard_Int64Wrappers(t *testing.T) {
	require.Equal(t, int64(0x4000000000000000), ShardChild(MasterShard, true))
	require.Equal(t, int64(-0x4000000000000000), ShardChild(MasterShard, false))
	require.Equal(t, MasterShard, ShardParent(ShardChild(MasterShard, false)))
}
