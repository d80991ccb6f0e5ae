package handler

import (
	"context"
	"sync/atomic"

	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

// Checkpointer saves the highest masterchain seqno of emitted blocks.
type Checkpointer struct {
	name string
	repo core.CheckpointRepository

	saved atomic.Uint32
}

func NewCheckpointer(name string, repo core.CheckpointRepository) *Checkpointer {
	return &Checkpointer{name: name, repo: repo}
}

func (c *Checkpointer) Register(d *event.Dispatcher) {
	d.OnBlock("checkpoint", c.Handle, nil)
}

func (c *Checkpointer) Saved() uint32 {
	return c.saved.Load()
}

func (c *Checkpointer) Handle(ctx context.Context, e *event.BlockEvent) error {
	seq := e.MasterBlock.SeqNo

	var cur uint32
	for {
		cur = c.saved.Load()
		if seq <= cur {
			return nil
		}
		if c.saved.CompareAndSwap(cur, seq) {
			break
		}
	}

	if err := c.repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: c.name, MasterSeqNo: seq}); err != nil {
		// a later block of the same master retries the save
		c.saved.CompareAndSwap(seq, cur)
		return err
	}
	return nil
}
