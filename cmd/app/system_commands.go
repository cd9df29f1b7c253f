package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/community/cmd/app/commands"
	"github.com/allisson/community/internal/app"
	"github.com/allisson/community/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP API server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "pipeline",
			Usage: "Start the projection pipeline workers (change stream reader and outbox publisher)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunPipeline(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
