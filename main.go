package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/harmony-helper/cmd"
)

func main() {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"CONFIG_FILE"},
			Value:   "config.yaml",
		},
		&cli.StringFlag{
			Name:    "log-level",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "INFO",
		},
	}

	app := &cli.App{
		Name:   "harmony-helper",
		Usage:  "binary sensors for the current activity of a harmony remote",
		Action: cmd.HelperCommand,
		Flags:  flags,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the bridge",
				Action: cmd.HelperCommand,
				Flags:  flags,
			},
			{
				Name:   "check",
				Usage:  "validate the config and print the resolved activity table",
				Action: cmd.CheckCommand,
				Flags:  flags,
			},
			{
				Name:   "token",
				Usage:  "print a bearer token for the http api",
				Action: cmd.TokenCommand,
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "subject",
						Value: "api",
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Value: 365 * 24 * time.Hour,
					},
				}, flags...),
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
