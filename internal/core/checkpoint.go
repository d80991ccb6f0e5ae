package core

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Checkpoint is the highest masterchain block seen by a named scanner.
type Checkpoint struct {
	bun.BaseModel `bun:"table:scanner_checkpoints,alias:cp"`

	Name        string    `bun:",pk,notnull" json:"name"`
	MasterSeqNo uint32    `bun:",notnull" json:"master_seq_no"`
	UpdatedAt   time.Time `bun:",notnull,default:current_timestamp" json:"updated_at"`
}

type CheckpointRepository interface {
	GetCheckpoint(ctx context.Context, name string) (*Checkpoint, error)
	// SaveCheckpoint stores the checkpoint if its seqno is higher than the stored one.
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	// ResetCheckpoint overwrites the checkpoint unconditionally.
	ResetCheckpoint(ctx context.Context, cp *Checkpoint) error
}
