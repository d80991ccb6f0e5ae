package http

import (
	"context"
	"github.com/goccy/go-json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

type staticScanner struct {
	status app.ScannerStatus
}

func (s *staticScanner) Start(context.Context, core.StartFrom) error { return nil }
func (s *staticScanner) Stop()                                         {}
func (s *staticScanner) Status() app.ScannerStatus                     { return s.status }

type staticStats event.Stats

func (s staticStats) Stats() event.Stats { return event.Stats(s) }

type staticCheckpoints struct {
	cp  *core.Checkpoint
	err error
}

func (s *staticCheckpoints) GetCheckpoint(context.Context, string) (*core.Checkpoint, error) {
	return s.cp, s.err
}
func (s *staticCheckpoints) SaveCheckpoint(context.Context, *core.Checkpoint) error  { return nil }
func (s *staticCheckpoints) ResetCheckpoint(context.Context, *core.Checkpoint) error { return nil }

func testServer(checkpoints core.CheckpointRepository) *Server {
	gin.SetMode(gin.TestMode)

	scanner := &staticScanner{status: app.ScannerStatus{Running: true, MasterSeqNo: 1000, Shards: 4, Blocks: 12}}
	c := NewController(scanner, staticStats{Dispatched: 30, Skipped: 2, Failed: 1}, "main", checkpoints)

	s := NewServer(":0")
	s.RegisterRoutes(c)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, basePath+path, nil))
	return w
}

func TestController_GetStatus(t *testing.T) {
	w := get(testServer(nil), "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var res StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Scanner.Running)
	assert.Equal(t, uint32(1000), res.Scanner.MasterSeqNo)
	assert.Equal(t, 4, res.Scanner.Shards)
	assert.Equal(t, int64(12), res.Scanner.Blocks)
	assert.Equal(t, event.Stats{Dispatched: 30, Skipped: 2, Failed: 1}, res.Events)
}

func TestController_GetCheckpoint(t *testing.T) {
	w := get(testServer(nil), "/checkpoint")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(testServer(&staticCheckpoints{err: errors.Wrap(core.ErrNotFound, "checkpoint main")}), "/checkpoint")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(testServer(&staticCheckpoints{err: errors.New("connection refused")}), "/checkpoint")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = get(testServer(&staticCheckpoints{cp: &core.Checkpoint{Name: "main", MasterSeqNo: 999}}), "/checkpoint")
	require.Equal(t, http.StatusOK, w.Code)

	var cp core.Checkpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cp))
	assert.Equal(t, "main", cp.Name)
	assert.Equal(t, uint32(999), cp.MasterSeqNo)
}
