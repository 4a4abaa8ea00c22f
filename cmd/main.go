package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "path of the .env file",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "estate-crm",
		Usage: "real-estate CRM backend: broker interviews, request pipeline and intake chatbot",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API, embedding workers and chat transports",
				Flags:  []cli.Flag{envFlag},
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Flags:  []cli.Flag{envFlag},
				Action: migrateAction,
			},
			{
				Name:   "embed",
				Usage:  "recompute embeddings for every area and unit type",
				Flags:  []cli.Flag{envFlag},
				Action: embedAction,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("estate-crm exited")
	}
}
