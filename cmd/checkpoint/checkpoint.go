package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/allisson/go-env"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/tonindexer/blockscan/internal/core"
	"github.com/tonindexer/blockscan/internal/core/repository"
)

func openCheckpoints(ctx context.Context) (*repository.Checkpoints, string, error) {
	dsn := env.GetString("CHECKPOINT_DSN", "")
	if dsn == "" {
		return nil, "", errors.New("CHECKPOINT_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	repo, err := repository.OpenCheckpoints(ctx, dsn)
	if err != nil {
		return nil, "", errors.Wrap(err, "cannot connect to checkpoint storage")
	}

	return repo, env.GetString("CHECKPOINT_NAME", "main"), nil
}

var Command = &cli.Command{
	Name:  "checkpoint",
	Usage: "Reads or overwrites the saved scanner position",

	Subcommands: []*cli.Command{
		{
			Name:  "get",
			Usage: "Prints the saved checkpoint",
			Action: func(c *cli.Context) error {
				repo, name, err := openCheckpoints(c.Context)
				if err != nil {
					return err
				}
				defer repo.Close()

				cp, err := repo.GetCheckpoint(c.Context, name)
				if err != nil {
					return err
				}

				raw, err := json.Marshal(cp)
				if err != nil {
					return err
				}
				fmt.Println(string(raw))

				return nil
			},
		},
		{
			Name:      "set",
			Usage:     "Overwrites the checkpoint with the given masterchain seqno",
			ArgsUsage: "<seqno>",
			Action: func(c *cli.Context) error {
				if c.Args().Len() != 1 {
					return errors.New("expected masterchain seqno argument")
				}
				seqNo, err := strconv.ParseUint(c.Args().First(), 10, 32)
				if err != nil {
					return errors.Wrap(err, "parse seqno")
				}

				repo, name, err := openCheckpoints(c.Context)
				if err != nil {
					return err
				}
				defer repo.Close()

				err = repo.ResetCheckpoint(c.Context, &core.Checkpoint{Name: name, MasterSeqNo: uint32(seqNo)})
				if err != nil {
					return err
				}

				log.Info().Str("checkpoint", name).Uint64("master_seq", seqNo).Msg("checkpoint is set")
				return nil
			},
		},
	},
}
