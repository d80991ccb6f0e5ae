package repository

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tonindexer/blockscan/internal/core"
	"github.com/tonindexer/blockscan/internal/core/repository/checkpoint"
)

func ConnectPG(_ context.Context, dsn string) (*bun.DB, error) {
	var err error

	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithWriteTimeout(time.Minute)))
	pgDB := bun.NewDB(sqlDB, pgdialect.New())

	for i := 0; i < 8; i++ { // wait for pg start
		err = pgDB.Ping()
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, errors.Wrap(err, "cannot ping pg")
	}

	return pgDB, nil
}

func ConnectRedis(ctx context.Context, dsn string) (*redis.Client, error) {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	rdb := redis.NewClient(opts)

	for i := 0; i < 8; i++ { // wait for redis start
		err = rdb.Ping(ctx).Err()
		if err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "cannot ping redis")
	}

	return rdb, nil
}

// Checkpoints is a checkpoint repository with the connection behind it.
type Checkpoints struct {
	core.CheckpointRepository

	close func() error
}

func (c *Checkpoints) Close() {
	_ = c.close()
}

// OpenCheckpoints connects to the checkpoint storage chosen by the dsn scheme.
func OpenCheckpoints(ctx context.Context, dsn string) (*Checkpoints, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse checkpoint dsn")
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		pg, err := ConnectPG(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := checkpoint.CreateTables(ctx, pg); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return &Checkpoints{CheckpointRepository: checkpoint.NewRepository(pg), close: pg.Close}, nil

	case "redis", "rediss":
		rdb, err := ConnectRedis(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &Checkpoints{CheckpointRepository: checkpoint.NewRedisRepository(rdb), close: rdb.Close}, nil

	default:
		return nil, errors.Errorf("unsupported checkpoint storage scheme %q", u.Scheme)
	}
}
