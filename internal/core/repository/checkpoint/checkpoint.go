package checkpoint

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/tonindexer/blockscan/internal/core"
)

var _ core.CheckpointRepository = (*Repository)(nil)

type Repository struct {
	pg *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{pg: db}
}

func CreateTables(ctx context.Context, pgDB *bun.DB) error {
	_, err := pgDB.NewCreateTable().
		Model(&core.Checkpoint{}).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "checkpoint pg create table")
	}
	return nil
}

func (r *Repository) GetCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	var cp core.Checkpoint

	err := r.pg.NewSelect().Model(&cp).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(core.ErrNotFound, "checkpoint %s", name)
		}
		return nil, errors.Wrapf(err, "select checkpoint %s", name)
	}

	return &cp, nil
}

func (r *Repository) SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	_, err := r.pg.NewInsert().Model(cp).
		On("CONFLICT (name) DO UPDATE").
		Set("master_seq_no = EXCLUDED.master_seq_no").
		Set("updated_at = EXCLUDED.updated_at").
		Where("cp.master_seq_no < EXCLUDED.master_seq_no").
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "save checkpoint %s", cp.Name)
	}
	return nil
}

func (r *Repository) ResetCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	_, err := r.pg.NewInsert().Model(cp).
		On("CONFLICT (name) DO UPDATE").
		Set("master_seq_no = EXCLUDED.master_seq_no").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrapf(err, "reset checkpoint %s", cp.Name)
	}
	return nil
}
