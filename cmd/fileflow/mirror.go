package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fileflow/fileflow/internal/config"
	"github.com/fileflow/fileflow/internal/storage"
	"github.com/fileflow/fileflow/pkg/logger"
)

func mirrorCommand() *cli.Command {
	flags := append(storageFlags(),
		&cli.StringFlag{
			Name:  "to-storage-type",
			Usage: "Destination backend type (file or s3)",
		},
		&cli.StringFlag{
			Name:  "to-prefix",
			Usage: "Destination base path for file storage",
		},
		&cli.StringFlag{
			Name:  "to-bucket",
			Usage: "Destination S3 bucket name",
		},
		&cli.StringFlag{
			Name:  "to-endpoint",
			Usage: "Destination S3 endpoint",
		},
		&cli.StringFlag{
			Name:  "to-region",
			Usage: "Destination S3 region",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent copy workers",
			Value: 4,
		},
	)

	return &cli.Command{
		Name:      "mirror",
		Usage:     "Copy a step's artifacts from one backend to another",
		ArgsUsage: "<workflow> <step>",
		Flags:     flags,
		Action:    runMirror,
	}
}

func runMirror(c *cli.Context) error {
	if c.NArg() != 2 {
		return cli.Exit("usage: fileflow mirror <workflow> <step>", 1)
	}
	workflow := c.Args().Get(0)
	step := c.Args().Get(1)

	source, err := resolveBackend(c)
	if err != nil {
		return fmt.Errorf("resolving source backend: %w", err)
	}

	dest, err := storage.Resolve(c.Context, storage.Options{
		Type:        c.String("to-storage-type"),
		Prefix:      c.String("to-prefix"),
		Environment: c.String("environment"),
		Bucket:      c.String("to-bucket"),
		Endpoint:    c.String("to-endpoint"),
		Region:      c.String("to-region"),
	}, config.Load())
	if err != nil {
		return fmt.Errorf("resolving destination backend: %w", err)
	}

	names, err := source.ListFilenamesInTask(c.Context, workflow, step)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(c.Int("workers"))

	copied := 0
	for _, name := range names {
		runDate, err := time.Parse("2006-01-02", name)
		if err != nil {
			// Only dated artifacts are mirrored; nested or foreign
			// names under the container are skipped.
			logger.Log.Warn().Str("name", name).Msg("skipping non-dated entry")
			continue
		}
		copied++

		g.Go(func() error {
			stream, err := source.GetReadStream(ctx, workflow, step, runDate)
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			defer stream.Close()

			if err := dest.WriteFromStream(ctx, workflow, step, runDate, stream, ""); err != nil {
				return fmt.Errorf("writing %s: %w", name, err)
			}
			logger.Log.Info().
				Str("workflow", workflow).
				Str("step", step).
				Str("date", name).
				Msg("mirrored artifact")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Log.Info().Int("artifacts", copied).Msg("mirror complete")
	return nil
}
