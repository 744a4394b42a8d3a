package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/request-tracker/internal/api/http"
	"github.com/spec-kit/request-tracker/internal/api/http/handlers"
	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/persistence"
	"github.com/spec-kit/request-tracker/internal/worker"
)

const metricsNamespace = "request_tracker"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c, err := bootstrap(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()
	logger := c.logger
	cfg := c.cfg

	if cfg.Postgres.RunMigrations {
		if err := c.prepareSchema(ctx); err != nil {
			logger.Error("failed to prepare schema", zap.Error(err))
			return err
		}
	}
	if created, err := persistence.SeedDefaultUsers(ctx, c.users, cfg.Seed, cfg.Auth.BcryptCost, logger); err != nil {
		logger.Warn("default user seeding failed", zap.Error(err))
	} else if created > 0 {
		logger.Info("default users created", zap.Int("count", created))
	}

	worker.StartActivityWorker(c.activity)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, c.metrics, cfg.App.RequestTimeout())

	loc := cfg.App.Location()
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": c.pg,
			"redis":    c.redis,
		}),
		Auth:            handlers.NewAuthHandler(c.auth),
		Requests:        handlers.NewRequestsHandler(c.requests),
		Worklogs:        handlers.NewWorklogsHandler(c.worklogs, loc),
		Metrics:         handlers.NewMetricsHandler(c.reports, loc),
		AuthMiddleware:  auth.NewAuthMiddleware(c.tokens, c.directory),
		MetricsExporter: c.metrics.Handler(),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(ctx, logger)

	return app.Shutdown()
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}
