package checkpoint

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/core"
)

var _ core.CheckpointRepository = (*RedisRepository)(nil)

const (
	redisKeyPrefix   = "scanner:checkpoint:"
	fieldMasterSeqNo = "master_seq_no"
	fieldUpdatedAt   = "updated_at"
)

// saveIfHigher sets the checkpoint hash only when the stored seqno is lower.
var saveIfHigher = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], ARGV[1]))
if cur ~= nil and cur >= tonumber(ARGV[2]) then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[4])
return 1
`)

type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func redisKey(name string) string {
	return redisKeyPrefix + name
}

func (r *RedisRepository) GetCheckpoint(ctx context.Context, name string) (*core.Checkpoint, error) {
	res, err := r.rdb.HGetAll(ctx, redisKey(name)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "get checkpoint %s", name)
	}
	if len(res) == 0 {
		return nil, errors.Wrapf(core.ErrNotFound, "checkpoint %s", name)
	}

	seqNo, err := strconv.ParseUint(res[fieldMasterSeqNo], 10, 32)
	if err != nil {
		return nil, errors.Wrapf(err, "parse checkpoint %s seqno", name)
	}

	cp := &core.Checkpoint{Name: name, MasterSeqNo: uint32(seqNo)}
	if s, ok := res[fieldUpdatedAt]; ok {
		cp.UpdatedAt, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, errors.Wrapf(err, "parse checkpoint %s time", name)
		}
	}
	return cp, nil
}

func (r *RedisRepository) SaveCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	err := saveIfHigher.Run(ctx, r.rdb, []string{redisKey(cp.Name)},
		fieldMasterSeqNo, cp.MasterSeqNo, fieldUpdatedAt, cp.UpdatedAt.Format(time.RFC3339Nano)).Err()
	if err != nil {
		return errors.Wrapf(err, "save checkpoint %s", cp.Name)
	}
	return nil
}

func (r *RedisRepository) ResetCheckpoint(ctx context.Context, cp *core.Checkpoint) error {
	cp.UpdatedAt = time.Now().UTC()

	err := r.rdb.HSet(ctx, redisKey(cp.Name),
		fieldMasterSeqNo, cp.MasterSeqNo, fieldUpdatedAt, cp.UpdatedAt.Format(time.RFC3339Nano)).Err()
	if err != nil {
		return errors.Wrapf(err, "reset checkpoint %s", cp.Name)
	}
	return nil
}
