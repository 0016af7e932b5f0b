package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	pkgcmd "github.com/rwcma/capitalab/pkg/cmd"
	"github.com/rwcma/capitalab/pkg/engine"
	"github.com/rwcma/capitalab/pkg/inbox"
	"github.com/rwcma/capitalab/pkg/log"
	"github.com/rwcma/capitalab/pkg/market"
	"github.com/rwcma/capitalab/pkg/otelhelper"
	"github.com/rwcma/capitalab/pkg/sla"
)

const defaultPort = 9081

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "capitalab-api",
		Usage:                 "Run the simulated capital-raise workflow API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Storage backend URL (postgres://, memory://, or a file root)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel, none)",
				Value:   "none",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the notification inbox (empty disables it)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "sla-reminders",
				Usage:   "Enable the periodic stalled-workflow reminder scanner",
				Sources: cli.EnvVars("SLA_REMINDERS"),
			},
			&cli.DurationFlag{
				Name:    "sla-stale-after",
				Usage:   "How long a stage may sit open before a reminder",
				Value:   sla.DefaultStaleAfter,
				Sources: cli.EnvVars("SLA_STALE_AFTER"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing via OTLP",
				Sources: cli.EnvVars("TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Capitalab API")

			store := pkgcmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			engineOpts := []engine.Option{}

			eventBus := pkgcmd.NewEventBus(command.String("event-bus"), logger)
			if eventBus != nil {
				defer func() {
					if err := eventBus.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				engineOpts = append(engineOpts, engine.WithEventBus(eventBus))
			}

			if redisURL := command.String("redis-url"); redisURL != "" {
				sink, err := inbox.NewRedisSink(ctx, redisURL, logger)
				if err != nil {
					return err
				}

				defer func() {
					if err := sink.Close(); err != nil {
						logger.ErrorContext(ctx, "Failed to close redis sink", "error", err)
					}
				}()

				engineOpts = append(engineOpts, engine.WithNotificationSink(sink))
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "capitalab-api")
				if err != nil {
					return err
				}

				engineOpts = append(engineOpts, engine.WithTracer(tracer))
			}

			if workflows, err := store.Workflows(ctx); err == nil {
				engineOpts = append(engineOpts, engine.WithISINSeed(uint64(len(workflows))))
			}

			eng := engine.NewEngine(store, logger, engineOpts...)
			marketService := market.NewService(store, eventBus, logger)

			if command.Bool("sla-reminders") {
				scanner := sla.NewScanner(eng, logger, command.Duration("sla-stale-after"))
				if err := scanner.Start(ctx, ""); err != nil {
					return err
				}

				defer scanner.Stop()
			}

			api := NewAPI(logger, store, eng, marketService)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
