package scanner

import (
	"strconv"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

const defaultCheckpointName = "main"

type liteServer struct {
	Host string `validate:"required,hostname_port"`
	Key  string `validate:"required,base64"`
}

type config struct {
	LiteServers []*liteServer `validate:"required,min=1,dive"`

	From                core.StartFrom
	PollInterval        time.Duration `validate:"gte=0"`
	MaxConcurrency      int           `validate:"gte=0"`
	IncludeTransactions bool

	CheckpointDSN  string `validate:"omitempty,url"`
	CheckpointName string `validate:"required"`

	Listen       string `validate:"omitempty,hostname_port"`
	EventsOutput string
	LogEvents    bool
}

func parseLiteServers(s string) ([]*liteServer, error) {
	var ret []*liteServer
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr == "" {
			continue
		}
		split := strings.Split(addr, "|")
		if len(split) != 2 {
			return nil, errors.Errorf("wrong server address format '%s'", addr)
		}
		ret = append(ret, &liteServer{Host: split[0], Key: split[1]})
	}
	return ret, nil
}

func getUint(key string, bits int) (*uint64, error) {
	s := env.GetString(key, "")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", key)
	}
	return &v, nil
}

func getStartFrom() (from core.StartFrom, err error) {
	seqNo, err := getUint("FROM_BLOCK", 32)
	if err != nil {
		return from, err
	}
	if seqNo != nil {
		v := uint32(*seqNo)
		from.SeqNo = &v
	}

	lt, err := getUint("FROM_LT", 64)
	if err != nil {
		return from, err
	}
	from.LT = lt

	utime, err := getUint("FROM_UTIME", 32)
	if err != nil {
		return from, err
	}
	if utime != nil {
		v := uint32(*utime)
		from.UTime = &v
	}

	return from, from.Validate()
}

func loadConfig() (*config, error) {
	var (
		cfg = config{
			MaxConcurrency:      int(env.GetInt32("MAX_CONCURRENCY", event.DefaultMaxConcurrency)),
			IncludeTransactions: env.GetBool("INCLUDE_TRANSACTIONS", true),
			CheckpointDSN:       env.GetString("CHECKPOINT_DSN", ""),
			CheckpointName:      env.GetString("CHECKPOINT_NAME", defaultCheckpointName),
			Listen:              env.GetString("LISTEN", ""),
			EventsOutput:        env.GetString("EVENTS_OUTPUT", ""),
			LogEvents:           env.GetBool("LOG_EVENTS", false),
		}
		err error
	)

	cfg.LiteServers, err = parseLiteServers(env.GetString("LITESERVERS", ""))
	if err != nil {
		return nil, err
	}

	cfg.From, err = getStartFrom()
	if err != nil {
		return nil, err
	}

	cfg.PollInterval = app.DefaultPollInterval
	if s := env.GetString("POLL_INTERVAL", ""); s != "" {
		cfg.PollInterval, err = time.ParseDuration(s)
		if err != nil {
			return nil, errors.Wrap(err, "parse POLL_INTERVAL")
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return &cfg, nil
}
