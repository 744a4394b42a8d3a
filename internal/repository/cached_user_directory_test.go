package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/domain"
)

type stubDirectory struct {
	users map[string]*domain.User
	calls int
}

func (s *stubDirectory) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.calls++
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type mapCacher map[string][]byte

func (m mapCacher) Get(_ context.Context, key string, dest any) error {
	raw, ok := m[key]
	if !ok {
		return redis.Nil
	}
	return json.Unmarshal(raw, dest)
}

func (m mapCacher) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m[key] = raw
	return nil
}

func (m mapCacher) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestCachedUserDirectory(t *testing.T) {
	ctx := context.Background()
	next := &stubDirectory{users: map[string]*domain.User{
		"u1": {ID: "u1", Username: "ana", FullName: "Ana Ruiz", Role: domain.RoleSupport, PasswordHash: "secret-hash"},
	}}
	store := mapCacher{}
	dir := NewCachedUserDirectory(next, store, time.Minute, zap.NewNop())

	first, err := dir.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Ruiz", first.FullName)

	second, err := dir.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSupport, second.Role)
	assert.Equal(t, 1, next.calls)

	assert.NotContains(t, string(store["user:u1"]), "secret-hash")

	_, err = dir.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestCachedUserDirectoryWithoutCache(t *testing.T) {
	next := &stubDirectory{users: map[string]*domain.User{"u1": {ID: "u1"}}}
	dir := NewCachedUserDirectory(next, nil, time.Minute, nil)

	_, err := dir.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	_, err = dir.GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
