package handler

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tonindexer/blockscan/internal/app/event"
)

// Logger writes every event to zerolog.
type Logger struct {
	log   zerolog.Logger
	level zerolog.Level
}

func NewLogger(level zerolog.Level) *Logger {
	return &Logger{log: log.Logger, level: level}
}

func (l *Logger) Register(d *event.Dispatcher) {
	d.OnAny("logger", l.Handle, nil)
}

func (l *Logger) Handle(_ context.Context, e event.Event) error {
	lvl := l.log.WithLevel(l.level)

	if m := e.Master(); m != nil {
		lvl = lvl.Uint32("master_seq", m.SeqNo)
	}

	switch e := e.(type) {
	case *event.BlockEvent:
		lvl.Str("shard_block", e.ShardBlock.String()).Msg("block")

	case *event.TransactionsEvent:
		lvl.Str("shard_block", e.ShardBlock.String()).
			Int("count", len(e.Transactions)).
			Msg("transactions")

	case *event.TransactionEvent:
		lvl.Str("shard_block", e.ShardBlock.String()).
			Uint64("lt", e.Transaction.LT).
			Hex("hash", e.Transaction.Hash).
			Msg("transaction")

	case *event.ErrorEvent:
		l.log.Warn().Err(e.Err).Str("handler", e.Handler).Msg("scan error")
	}

	return nil
}
