package app

import (
	"context"
	"time"

	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

const DefaultPollInterval = time.Second

type ScannerConfig struct {
	Client     core.ChainClient  `validate:"required"`
	Dispatcher *event.Dispatcher `validate:"required"`

	// Context is attached to every emitted event.
	Context event.Context

	IncludeTransactions bool
	PollInterval        time.Duration `validate:"gte=0"`
}

type ScannerStatus struct {
	Running     bool   `json:"running"`
	MasterSeqNo uint32 `json:"master_seq_no"`
	Shards      int    `json:"shards"`
	Blocks      int64  `json:"blocks"`
}

type ScannerService interface {
	// Start blocks until Stop is called, ctx is done or the chain client fails.
	Start(ctx context.Context, from core.StartFrom) error
	Stop()
	Status() ScannerStatus
}
