package core

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	var buf bytes.Buffer

	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	b := &BlockID{Workchain: 0, Shard: MasterShard, SeqNo: 7}

	Timer(time.Now(), "BlockHeader", b)
	require.Zero(t, buf.Len())

	Timer(time.Now().Add(-time.Second), "BlockTransactions", b)
	require.Contains(t, buf.String(), `"op":"BlockTransactions"`)
	require.Contains(t, buf.String(), `"shard":"0:8000000000000000"`)
	require.Contains(t, buf.String(), `"seq":7`)
	require.Contains(t, buf.String(), `"message":"slow call"`)

	buf.Reset()
	Timer(time.Now().Add(-time.Second), "LastMasterBlock", nil)
	require.Contains(t, buf.String(), `"op":"LastMasterBlock"`)
	require.NotContains(t, buf.String(), `"seq"`)
}
