package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tonindexer/blockscan/internal/core"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisRepository(rdb), s
}

func TestRedisRepository_GetCheckpoint_NotFound(t *testing.T) {
	repo, _ := newRedisRepo(t)

	_, err := repo.GetCheckpoint(context.Background(), "main")
	require.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRedisRepository_SaveCheckpoint(t *testing.T) {
	ctx := context.Background()
	repo, s := newRedisRepo(t)

	err := repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "main", MasterSeqNo: 100})
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint32(100), cp.MasterSeqNo)
	require.Equal(t, "main", cp.Name)
	require.WithinDuration(t, time.Now(), cp.UpdatedAt, time.Minute)
	require.Equal(t, "100", s.HGet(redisKey("main"), fieldMasterSeqNo))

	// lower and equal seqno do not move the checkpoint back
	for _, seq := range []uint32{99, 100, 1} {
		err = repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "main", MasterSeqNo: seq})
		require.NoError(t, err)
	}
	cp, err = repo.GetCheckpoint(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint32(100), cp.MasterSeqNo)

	err = repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "main", MasterSeqNo: 101})
	require.NoError(t, err)
	cp, err = repo.GetCheckpoint(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint32(101), cp.MasterSeqNo)

	// checkpoints are kept per scanner name
	_, err = repo.GetCheckpoint(ctx, "other")
	require.True(t, errors.Is(err, core.ErrNotFound))
}

func TestRedisRepository_ResetCheckpoint(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRedisRepo(t)

	err := repo.SaveCheckpoint(ctx, &core.Checkpoint{Name: "main", MasterSeqNo: 100})
	require.NoError(t, err)

	err = repo.ResetCheckpoint(ctx, &core.Checkpoint{Name: "main", MasterSeqNo: 10})
	require.NoError(t, err)

	cp, err := repo.GetCheckpoint(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, uint32(10), cp.MasterSeqNo)
}
