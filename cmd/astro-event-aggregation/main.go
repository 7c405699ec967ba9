package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/celestiatrack/astro-event-aggregation/internal/api/http"
	"github.com/celestiatrack/astro-event-aggregation/internal/astro"
	"github.com/celestiatrack/astro-event-aggregation/internal/astro/adapters"
	"github.com/celestiatrack/astro-event-aggregation/internal/config"
	"github.com/celestiatrack/astro-event-aggregation/internal/observability"
	"github.com/celestiatrack/astro-event-aggregation/internal/scheduler"
	"github.com/celestiatrack/astro-event-aggregation/internal/store"
)

func main() {
	// Load configuration (.env is read inside Load).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	eventStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer eventStore.Close()

	// Adapters in their fixed invocation order: celestial body, twilight,
	// meteor showers, fireballs.
	ams := adapters.NewAMSClient(httpClient, cfg.AMSAPIKey)
	adapterList := []astro.Adapter{
		adapters.NewCelestialBodyAdapter(httpClient, cfg.AstronomyAppID, cfg.AstronomyAppSecret, cfg.CelestialBodies),
		adapters.NewTwilightAdapter(httpClient),
		adapters.NewMeteorShowerAdapter(ams),
		adapters.NewFireballAdapter(ams),
	}

	metrics := observability.NewMetrics()

	// Core service orchestrating adapters and store.
	service := astro.NewService(eventStore, adapterList, clockwork.NewRealClock(), metrics)

	// Scheduler that periodically refreshes the event store.
	sched := scheduler.New(cfg.Location, cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "astro-event-aggregation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "astro-event-aggregation",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.Location)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// openStore selects the persistence sink from configuration.
func openStore(cfg *config.AppConfig) (astro.Store, error) {
	switch cfg.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	default:
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
}
