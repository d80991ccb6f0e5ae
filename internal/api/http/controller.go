package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/core"
)

var _ StatusController = (*Controller)(nil)

type StatsProvider interface {
	Stats() event.Stats
}

type Controller struct {
	scanner app.ScannerService
	events  StatsProvider

	checkpointName string
	checkpoints    core.CheckpointRepository
}

type StatusResponse struct {
	Scanner app.ScannerStatus `json:"scanner"`
	Events  event.Stats       `json:"events"`
}

// NewController creates status controller. Checkpoint repository may be nil.
func NewController(scanner app.ScannerService, events StatsProvider, checkpointName string, checkpoints core.CheckpointRepository) *Controller {
	return &Controller{
		scanner:        scanner,
		events:         events,
		checkpointName: checkpointName,
		checkpoints:    checkpoints,
	}
}

func internalErr(ctx *gin.Context, err error) {
	log.Error().Str("path", ctx.FullPath()).Err(err).Msg("internal server error")
	ctx.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (c *Controller) GetStatus(ctx *gin.Context) {
	ctx.IndentedJSON(http.StatusOK, &StatusResponse{
		Scanner: c.scanner.Status(),
		Events:  c.events.Stats(),
	})
}

func (c *Controller) GetCheckpoint(ctx *gin.Context) {
	if c.checkpoints == nil {
		ctx.IndentedJSON(http.StatusNotFound, gin.H{"error": "checkpoints are disabled"})
		return
	}

	ret, err := c.checkpoints.GetCheckpoint(ctx, c.checkpointName)
	if errors.Is(err, core.ErrNotFound) {
		ctx.IndentedJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		internalErr(ctx, err)
		return
	}
	ctx.IndentedJSON(http.StatusOK, ret)
}
