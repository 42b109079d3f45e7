package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/txc_segments/internal/api"
	"github.com/passbi/txc_segments/internal/cache"
	"github.com/passbi/txc_segments/internal/config"
	"github.com/passbi/txc_segments/internal/db"
	"github.com/passbi/txc_segments/internal/middleware"
)

func main() {
	configPath := flag.String("config", "config.yml", "Path to YAML config file")
	flag.Parse()

	config.InitLogging()
	config.LoadEnvFiles(".env", ".env.local")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting TXC segments API server...")

	checks := map[string]api.HealthCheck{}
	var store db.Reader

	switch {
	case cfg.Database.Enabled:
		pool, err := db.GetDB(db.ConfigFrom(cfg.Database))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		store = db.NewPostgresStore(pool)
		checks["database"] = db.HealthCheck
		log.Println("✓ Database connection established")
	case cfg.SQLite.Path != "":
		sqlite, err := db.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open SQLite database: %v", err)
		}
		defer sqlite.Close()
		store = sqlite
		checks["database"] = func(ctx context.Context) error {
			_, err := sqlite.LatestRun(ctx)
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			return err
		}
		log.Println("✓ SQLite database opened")
	default:
		log.Fatal("No store configured: enable database or set sqlite.path")
	}

	app := fiber.New(fiber.Config{
		AppName:      "TXC Segments API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	if cfg.Cache.Enabled {
		rdb, err := cache.GetClient(cache.ConfigFrom(cfg.Cache))
		if err != nil {
			log.Printf("Warning: Redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer cache.Close()
			checks["redis"] = cache.HealthCheck
			app.Use(middleware.RateLimitMiddleware(rdb, cfg.API.RateLimit))
			log.Println("✓ Redis connection established")
		}
	}

	api.NewHandlers(store, checks).Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	addr := fmt.Sprintf(":%s", cfg.API.Port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Server listening on http://localhost%s", addr)
	log.Printf("Segments: http://localhost%s/v1/segments?line=LINE&limit=100", addr)
	log.Printf("Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
