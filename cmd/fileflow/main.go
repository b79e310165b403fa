package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/fileflow/fileflow/internal/config"
	"github.com/fileflow/fileflow/internal/storage"
	"github.com/fileflow/fileflow/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "fileflow",
		Usage: "Inspect and manage intermediate task storage",
		Flags: storageFlags(),
		Commands: []*cli.Command{
			listCommand(),
			catCommand(),
			putCommand(),
			mirrorCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "storage-type",
			Usage:   "Storage backend type (file or s3)",
			EnvVars: []string{"FILEFLOW_STORAGE_TYPE"},
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Base path for file storage",
			EnvVars: []string{"FILEFLOW_STORAGE_PREFIX"},
		},
		&cli.StringFlag{
			Name:    "environment",
			Usage:   "Deployment environment (production, qa, development, test)",
			EnvVars: []string{"FILEFLOW_ENVIRONMENT"},
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "S3 bucket name (environment suffix applied automatically)",
			EnvVars: []string{"FILEFLOW_AWS_BUCKET_NAME"},
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "S3 endpoint",
			EnvVars: []string{"FILEFLOW_AWS_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "S3 region",
			EnvVars: []string{"FILEFLOW_AWS_REGION"},
		},
		&cli.BoolFlag{
			Name:  "retry",
			Usage: "Retry transport failures with exponential backoff",
		},
	}
}

// resolveBackend builds the backend for a command invocation. Flags
// win over environment settings; anything unset falls back to the
// configuration contract.
func resolveBackend(c *cli.Context) (storage.Backend, error) {
	opts := storage.Options{
		Type:        c.String("storage-type"),
		Prefix:      c.String("prefix"),
		Environment: c.String("environment"),
		Bucket:      c.String("bucket"),
		Endpoint:    c.String("endpoint"),
		Region:      c.String("region"),
	}

	backend, err := storage.Resolve(c.Context, opts, config.Load())
	if err != nil {
		return nil, err
	}
	if c.Bool("retry") {
		backend = storage.WithRetry(backend, storage.DefaultRetryConfig())
	}
	return backend, nil
}

func parseRunDate(arg string) (time.Time, error) {
	runDate, err := time.Parse("2006-01-02", arg)
	if err != nil {
		return time.Time{}, fmt.Errorf("run date must be YYYY-MM-DD, got %q", arg)
	}
	return runDate, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List a step's stored artifacts",
		ArgsUsage: "<workflow> <step>",
		Flags:     storageFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("usage: fileflow ls <workflow> <step>", 1)
			}
			backend, err := resolveBackend(c)
			if err != nil {
				return err
			}

			names, err := backend.ListFilenamesInTask(c.Context, c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func catCommand() *cli.Command {
	return &cli.Command{
		Name:      "cat",
		Usage:     "Print one artifact's payload to stdout",
		ArgsUsage: "<workflow> <step> <date>",
		Flags:     storageFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return cli.Exit("usage: fileflow cat <workflow> <step> <date>", 1)
			}
			runDate, err := parseRunDate(c.Args().Get(2))
			if err != nil {
				return err
			}
			backend, err := resolveBackend(c)
			if err != nil {
				return err
			}

			data, err := backend.Read(c.Context, c.Args().Get(0), c.Args().Get(1), runDate)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

func putCommand() *cli.Command {
	flags := append(storageFlags(),
		&cli.StringFlag{
			Name:  "content-type",
			Usage: "Advisory content type for the artifact",
			Value: "text/plain",
		},
	)

	return &cli.Command{
		Name:      "put",
		Usage:     "Store an artifact from a file or stdin",
		ArgsUsage: "<workflow> <step> <date> [file]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 || c.NArg() > 4 {
				return cli.Exit("usage: fileflow put <workflow> <step> <date> [file]", 1)
			}
			workflow := c.Args().Get(0)
			step := c.Args().Get(1)
			runDate, err := parseRunDate(c.Args().Get(2))
			if err != nil {
				return err
			}

			var stream io.Reader = os.Stdin
			if c.NArg() == 4 {
				f, err := os.Open(c.Args().Get(3))
				if err != nil {
					return err
				}
				defer f.Close()
				stream = f
			}

			backend, err := resolveBackend(c)
			if err != nil {
				return err
			}

			if err := backend.WriteFromStream(c.Context, workflow, step, runDate, stream, c.String("content-type")); err != nil {
				return err
			}
			fmt.Println(backend.GetFilename(workflow, step, runDate))
			return nil
		},
	}
}
