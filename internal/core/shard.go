package core

// Shard ids are binary prefixes terminated by their lowest set bit.
// All arithmetic wraps around 2^64.

func LowerBit64(shard uint64) uint64 {
	return shard & (^shard + 1)
}

func ChildShard(shard uint64, left bool) uint64 {
	x := LowerBit64(shard) >> 1
	if left {
		return shard - x
	}
	return shard + x
}

func ParentShard(shard uint64) uint64 {
	x := LowerBit64(shard)
	return (shard - x) | (x << 1)
}

func ShardChild(shard int64, left bool) int64 {
	return int64(ChildShard(uint64(shard), left))
}

func ShardParent(shard int64) int64 {
	return int64(ParentShard(uint64(shard)))
}
