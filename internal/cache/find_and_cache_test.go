package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// memoryCacher is a JSON round-tripping Cacher for tests.
type memoryCacher struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newMemoryCacher() *memoryCacher {
	return &memoryCacher{data: map[string][]byte{}}
}

func (m *memoryCacher) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacher) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	m.sets++
	return nil
}

func (m *memoryCacher) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFindAndCache(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("miss fetches and populates", func(t *testing.T) {
		c := newMemoryCacher()
		var sf singleflight.Group
		calls := 0

		got, err := FindAndCache(ctx, c, &sf, "user:1", time.Minute, logger, func(ctx context.Context) (profile, error) {
			calls++
			return profile{ID: "1", Name: "Ana"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana", got.Name)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1, c.sets)

		again, err := FindAndCache(ctx, c, &sf, "user:1", time.Minute, logger, func(ctx context.Context) (profile, error) {
			calls++
			return profile{}, errors.New("should not be called")
		})
		require.NoError(t, err)
		assert.Equal(t, got, again)
		assert.Equal(t, 1, calls)
	})

	t.Run("cache errors fall back to fetch", func(t *testing.T) {
		c := newMemoryCacher()
		c.getErr = errors.New("connection refused")
		var sf singleflight.Group

		got, err := FindAndCache(ctx, c, &sf, "user:2", time.Minute, nil, func(ctx context.Context) (profile, error) {
			return profile{ID: "2"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "2", got.ID)
	})

	t.Run("fetch errors are returned and not cached", func(t *testing.T) {
		c := newMemoryCacher()
		var sf singleflight.Group
		boom := errors.New("not found")

		_, err := FindAndCache(ctx, c, &sf, "user:3", time.Minute, logger, func(ctx context.Context) (profile, error) {
			return profile{}, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.sets)
	})

	t.Run("zero ttl bypasses cache", func(t *testing.T) {
		c := newMemoryCacher()
		var sf singleflight.Group

		_, err := FindAndCache(ctx, c, &sf, "user:4", 0, logger, func(ctx context.Context) (profile, error) {
			return profile{ID: "4"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 0, c.sets)
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		c := newMemoryCacher()
		var sf singleflight.Group
		var calls int32
		release := make(chan struct{})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := FindAndCache(ctx, c, &sf, "user:5", time.Minute, logger, func(ctx context.Context) (profile, error) {
					atomic.AddInt32(&calls, 1)
					<-release
					return profile{ID: "5"}, nil
				})
				assert.NoError(t, err)
			}()
		}
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
		assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
	})
}
