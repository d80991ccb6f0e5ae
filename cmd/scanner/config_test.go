package scanner

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/core"
)

const testKey = "n4VDnSCUuSpjnCyUk9e3QOOd6o0ItSWYbTnW3Wnn8wk="

func TestLoadConfig(t *testing.T) {
	t.Setenv("LITESERVERS", "135.181.140.212:13206|"+testKey+", 1.2.3.4:5|"+testKey)
	t.Setenv("FROM_BLOCK", "1000")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("CHECKPOINT_DSN", "redis://localhost:6379/0")

	cfg, err := loadConfig()
	require.NoError(t, err)

	require.Len(t, cfg.LiteServers, 2)
	require.Equal(t, "1.2.3.4:5", cfg.LiteServers[1].Host)
	require.Equal(t, testKey, cfg.LiteServers[1].Key)
	require.NotNil(t, cfg.From.SeqNo)
	require.Equal(t, uint32(1000), *cfg.From.SeqNo)
	require.Nil(t, cfg.From.LT)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, defaultCheckpointName, cfg.CheckpointName)
	require.True(t, cfg.IncludeTransactions)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("LITESERVERS", "135.181.140.212:13206|"+testKey)

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.True(t, cfg.From.Latest())
	require.Equal(t, app.DefaultPollInterval, cfg.PollInterval)
}

func TestLoadConfig_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
	}{
		{name: "no lite servers", env: map[string]string{}},
		{name: "bad lite server", env: map[string]string{"LITESERVERS": "135.181.140.212:13206"}},
		{name: "bad key", env: map[string]string{"LITESERVERS": "135.181.140.212:13206|not base64!"}},
		{name: "bad seqno", env: map[string]string{"LITESERVERS": "1.2.3.4:5|" + testKey, "FROM_BLOCK": "-1"}},
		{name: "bad poll interval", env: map[string]string{"LITESERVERS": "1.2.3.4:5|" + testKey, "POLL_INTERVAL": "often"}},
		{name: "negative poll interval", env: map[string]string{"LITESERVERS": "1.2.3.4:5|" + testKey, "POLL_INTERVAL": "-1s"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("LITESERVERS", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_TwoSelectors(t *testing.T) {
	t.Setenv("LITESERVERS", "1.2.3.4:5|"+testKey)
	t.Setenv("FROM_BLOCK", "10")
	t.Setenv("FROM_UTIME", "1680000000")

	_, err := loadConfig()
	require.True(t, errors.Is(err, core.ErrInvalidSelector))
}
