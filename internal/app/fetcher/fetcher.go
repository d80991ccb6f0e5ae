package fetcher

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/core"
)

var _ core.ChainClient = (*Service)(nil)

const (
	defaultLastMasterTTL = 300 * time.Millisecond
	defaultCacheSize     = 4096
)

// Service implements core.ChainClient on top of tonutils-go lite client.
type Service struct {
	*app.FetcherConfig

	blocks *blocksCache
}

func NewService(cfg *app.FetcherConfig) (*Service, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validate fetcher config")
	}
	if cfg.LastMasterTTL == 0 {
		cfg.LastMasterTTL = defaultLastMasterTTL
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = defaultCacheSize
	}
	return &Service{
		FetcherConfig: cfg,
		blocks:        newBlocksCache(cfg.CacheSize, cfg.LastMasterTTL),
	}, nil
}
