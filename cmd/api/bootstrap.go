package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/cache"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/events"
	"github.com/spec-kit/request-tracker/internal/observability"
	"github.com/spec-kit/request-tracker/internal/persistence"
	"github.com/spec-kit/request-tracker/internal/repository"
	"github.com/spec-kit/request-tracker/internal/service"
)

// container holds the wired process dependencies shared by every command.
type container struct {
	cfg     *config.Config
	logger  *zap.Logger
	pg      *persistence.Postgres
	redis   *persistence.Redis
	metrics *observability.Metrics

	users      repository.UserRepository
	directory  repository.UserDirectory
	dispatcher events.Dispatcher
	tokens     *auth.TokenManager

	requests *service.RequestService
	worklogs *service.WorklogService
	reports  *service.MetricsService
	auth     *service.AuthService
	activity *service.ActivityService
}

// bootstrap loads configuration and connects to Postgres. Redis is optional
// and only dialled when withRedis is set.
func bootstrap(ctx context.Context, withRedis bool) (*container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	c := &container{
		cfg:     cfg,
		logger:  logger,
		pg:      pg,
		metrics: observability.NewMetrics(metricsNamespace),
	}
	pool := pg.PoolHandle()
	c.users = repository.NewUserRepository(pool)

	var cacher cache.Cacher
	if withRedis {
		c.redis = persistence.NewRedis(cfg.Redis, logger)
		cacher = cache.NewRedisCache(c.redis.Client, cfg.App.Name+":")
	}
	c.directory = repository.NewCachedUserDirectory(c.users, cacher, cfg.Cache.UserTTL(), logger)

	c.dispatcher = events.NewInMemoryDispatcher(logger)
	c.tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	requestRepo := repository.NewRequestRepository(pool)
	loc := cfg.App.Location()

	c.requests = service.NewRequestService(service.RequestDependencies{
		RequestRepo:   requestRepo,
		UserDirectory: c.directory,
		Dispatcher:    c.dispatcher,
		Logger:        logger,
	})
	c.worklogs = service.NewWorklogService(service.WorklogDependencies{
		WorklogRepo: repository.NewWorklogRepository(pool),
		RequestRepo: requestRepo,
		Dispatcher:  c.dispatcher,
		Location:    loc,
		Logger:      logger,
	})
	c.reports = service.NewMetricsService(service.MetricsDependencies{
		MetricsRepo:     repository.NewMetricsRepository(pool),
		StatusEventRepo: repository.NewStatusEventRepository(pool),
		UserDirectory:   c.directory,
		Location:        loc,
		SLAHours: map[domain.Priority]int{
			domain.PriorityHigh:   cfg.Metrics.SLAHoursHigh,
			domain.PriorityMedium: cfg.Metrics.SLAHoursMedium,
			domain.PriorityLow:    cfg.Metrics.SLAHoursLow,
		},
		BacklogMaxDays: cfg.Metrics.BacklogMaxDays,
		Logger:         logger,
	})
	c.auth = service.NewAuthService(service.AuthDependencies{
		UserRepo:     c.users,
		TokenManager: c.tokens,
		Logger:       logger,
	})
	c.activity = service.NewActivityService(c.dispatcher, c.metrics, logger)
	return c, nil
}

// prepareSchema applies migrations and best-effort indexes.
func (c *container) prepareSchema(ctx context.Context) error {
	if err := persistence.RunMigrations(ctx, c.pg.PoolHandle(), c.logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	persistence.EnsureIndexes(ctx, c.pg.PoolHandle(), c.logger)
	return nil
}

func (c *container) close() {
	if c.redis != nil {
		c.redis.Close()
	}
	c.pg.Close()
	_ = c.logger.Sync()
}
