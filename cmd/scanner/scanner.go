package scanner

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"

	"github.com/tonindexer/blockscan/internal/api/http"
	"github.com/tonindexer/blockscan/internal/app"
	"github.com/tonindexer/blockscan/internal/app/event"
	"github.com/tonindexer/blockscan/internal/app/fetcher"
	"github.com/tonindexer/blockscan/internal/app/handler"
	"github.com/tonindexer/blockscan/internal/app/scanner"
	"github.com/tonindexer/blockscan/internal/core"
	"github.com/tonindexer/blockscan/internal/core/repository"
)

func connectLiteServers(ctx context.Context, servers []*liteServer) (*ton.APIClient, error) {
	client := liteclient.NewConnectionPool()
	for _, s := range servers {
		if err := client.AddConnection(ctx, s.Host, s.Key); err != nil {
			return nil, errors.Wrapf(err, "cannot add connection with %s host and %s key", s.Host, s.Key)
		}
	}
	return ton.NewAPIClient(client), nil
}

func openEventsOutput(output string) (io.WriteCloser, error) {
	switch output {
	case "":
		return nil, nil
	case "stdout", "-":
		return os.Stdout, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "open events output %s", output)
		}
		return f, nil
	}
}

// resumeFrom returns the start selector: an explicit one from the environment
// or the saved checkpoint, if there is any.
func resumeFrom(ctx context.Context, from core.StartFrom, repo core.CheckpointRepository, name string) (core.StartFrom, error) {
	if !from.Latest() || repo == nil {
		return from, nil
	}

	cp, err := repo.GetCheckpoint(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		log.Info().Str("checkpoint", name).Msg("no checkpoint, starting from the last masterchain block")
		return from, nil
	}
	if err != nil {
		return from, errors.Wrap(err, "get checkpoint")
	}

	log.Info().Str("checkpoint", name).Uint32("master_seq", cp.MasterSeqNo).Msg("resuming from checkpoint")
	return core.StartFrom{SeqNo: &cp.MasterSeqNo}, nil
}

var Command = &cli.Command{
	Name:    "scanner",
	Aliases: []string{"scan"},
	Usage:   "Scans masterchain and shard blocks",

	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		api, err := connectLiteServers(ctx.Context, cfg.LiteServers)
		if err != nil {
			return err
		}

		f, err := fetcher.NewService(&app.FetcherConfig{API: api})
		if err != nil {
			return err
		}

		d := event.NewDispatcher(cfg.MaxConcurrency)

		var checkpoints *repository.Checkpoints
		if cfg.CheckpointDSN != "" {
			checkpoints, err = repository.OpenCheckpoints(ctx.Context, cfg.CheckpointDSN)
			if err != nil {
				return errors.Wrap(err, "cannot connect to checkpoint storage")
			}
			defer checkpoints.Close()

			handler.NewCheckpointer(cfg.CheckpointName, checkpoints).Register(d)
		}

		if cfg.LogEvents {
			handler.NewLogger(zerolog.InfoLevel).Register(d)
		}

		out, err := openEventsOutput(cfg.EventsOutput)
		if err != nil {
			return err
		}
		if out != nil {
			if out != os.Stdout {
				defer out.Close()
			}
			handler.NewJSONWriter(out).Register(d)
		}

		s, err := scanner.NewService(&app.ScannerConfig{
			Client:              f,
			Dispatcher:          d,
			Context:             event.Context{"checkpoint": cfg.CheckpointName},
			IncludeTransactions: cfg.IncludeTransactions,
			PollInterval:        cfg.PollInterval,
		})
		if err != nil {
			return err
		}

		var repo core.CheckpointRepository
		if checkpoints != nil {
			repo = checkpoints
		}
		from, err := resumeFrom(ctx.Context, cfg.From, repo, cfg.CheckpointName)
		if err != nil {
			return err
		}

		if cfg.Listen != "" {
			srv := http.NewServer(cfg.Listen)
			srv.RegisterRoutes(http.NewController(s, d, cfg.CheckpointName, repo))
			go func() {
				if err := srv.Run(); err != nil {
					log.Error().Err(err).Msg("status api")
				}
			}()
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			for range c {
				s.Stop()
			}
		}()

		return s.Start(ctx.Context, from)
	},
}
