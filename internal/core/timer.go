package core

import (
	"time"

	"github.com/rs/zerolog/log"
)

// SlowCallThreshold is the minimal duration of a call reported by Timer.
var SlowCallThreshold = 100 * time.Millisecond

// Timer reports a slow lite server call made for the given block.
// Use it as: defer core.Timer(time.Now(), "BlockTransactions", b).
func Timer(start time.Time, op string, b *BlockID) {
	elapsed := time.Since(start)
	if elapsed < SlowCallThreshold {
		return
	}

	e := log.Debug().Str("op", op).Dur("elapsed", elapsed)
	if b != nil {
		e = e.Int32("workchain", b.Workchain).
			Str("shard", b.ShardKey().String()).
			Uint32("seq", b.SeqNo)
	}
	e.Msg("slow call")
}
