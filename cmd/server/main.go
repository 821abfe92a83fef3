package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patentchat/internal/config"
	"patentchat/internal/database"
	"patentchat/internal/handlers"
	"patentchat/internal/logging"
	"patentchat/internal/metrics"
	"patentchat/internal/routes"
	"patentchat/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.Logging())
	log := logging.Component("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply schema")
		}
	}

	utils.SetupTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	handlers.Configure(handlers.Settings{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
		SecureCookies:   cfg.SecureCookies,
	})
	handlers.SetIdempotencyTTL(cfg.IdempotencyTTL)

	go purgeIdempotencyKeys(ctx, cfg.IdempotencyTTL)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOriginList(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowCredentials: true,
	}))

	routes.SetupRoutes(app, cfg.AppName)

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("Shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

// purgeIdempotencyKeys drops stored responses once they can no longer be replayed.
func purgeIdempotencyKeys(ctx context.Context, ttl time.Duration) {
	log := logging.Component("idempotency")

	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := database.PurgeIdempotencyKeys(ctx, ttl)
			if err != nil {
				log.Warn().Err(err).Msg("Purge failed")
				continue
			}
			metrics.IdempotencyKeysPurged.Add(float64(n))
			if n > 0 {
				log.Debug().Int64("deleted", n).Msg("Purged expired idempotency keys")
			}
		}
	}
}
