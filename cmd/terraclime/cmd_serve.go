package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/terraclime/internal/api/http"
	"github.com/i474232898/terraclime/internal/config"
	"github.com/i474232898/terraclime/internal/earthdata"
	"github.com/i474232898/terraclime/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg *config.AppConfig) error {
	service, cache := buildService(cfg, earthdata.Credentials{})

	// Scheduler that pre-builds samples for configured locations.
	sched := scheduler.New(cfg.WarmupLocations, cfg.WarmupVariables, cfg.WarmupInterval, service)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	// Analyses sweep 30 years sequentially; allow for slow archives.
	app := fiber.New(fiber.Config{
		AppName:               "terraclime",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Minute,
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

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "terraclime",
			"cache":   cache.Stats(),
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s (baseline %s, auth mode %s)", cfg.Port, cfg.Baseline, cfg.Earthdata.Mode)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}
