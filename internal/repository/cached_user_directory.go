package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/request-tracker/internal/cache"
	"github.com/spec-kit/request-tracker/internal/domain"
)

type cachedUserDirectory struct {
	next   UserDirectory
	cache  cache.Cacher
	group  singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedUserDirectory fronts a directory with a read-through cache.
// A nil cacher disables caching.
func NewCachedUserDirectory(next UserDirectory, c cache.Cacher, ttl time.Duration, logger *zap.Logger) UserDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedUserDirectory{next: next, cache: c, ttl: ttl, logger: logger}
}

func (d *cachedUserDirectory) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return cache.FindAndCache(ctx, d.cache, &d.group, "user:"+id, d.ttl, d.logger,
		func(ctx context.Context) (*domain.User, error) {
			return d.next.GetByID(ctx, id)
		})
}
