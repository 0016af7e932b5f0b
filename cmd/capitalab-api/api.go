// Package main provides the Capitalab API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/rwcma/capitalab/pkg/engine"
	"github.com/rwcma/capitalab/pkg/market"
	"github.com/rwcma/capitalab/pkg/persistence"
	"github.com/rwcma/capitalab/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	engine      *engine.Engine
	market      *market.Service
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	eng *engine.Engine,
	marketService *market.Service,
) *API {
	return &API{
		logger:      logger,
		persistence: store,
		engine:      eng,
		market:      marketService,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.engine, a.market, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Capitalab API")
	})

	app.Get("/actions", handlers.GetActions)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Post("/:id/advance", handlers.AdvanceStage)
	w.Post("/:id/actions/:action", handlers.ExecuteAction)
	w.Post("/:id/participants", handlers.AssignParticipant)
	w.Post("/:id/documents", handlers.AddDocument)
	w.Post("/:id/documents/:documentId/review", handlers.ReviewDocument)
	w.Get("/:id/checklist", handlers.GetChecklist)
	w.Post("/:id/graduate", handlers.GraduateWorkflow)
	w.Post("/:id/suspend", handlers.SuspendWorkflow)
	w.Post("/:id/resume", handlers.ResumeWorkflow)
	w.Post("/:id/reject", handlers.RejectWorkflow)
	w.Post("/:id/notifications/:notificationId/read", handlers.MarkNotificationRead)

	app.Get("/notifications", handlers.GetNotifications)

	i := app.Group("/instruments")
	i.Get("/", handlers.GetInstruments)
	i.Get("/:id", handlers.GetInstrument)
	i.Post("/:id/launch", handlers.LaunchTrading)
	i.Post("/:id/orders", handlers.PlaceOrder)
	i.Get("/:id/orders", handlers.GetOrders)

	app.Get("/market-makers", handlers.GetMarketMakers)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
