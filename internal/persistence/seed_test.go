package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/domain"
)

type memoryUsers struct {
	byName map[string]*domain.User
}

func (m *memoryUsers) Create(_ context.Context, u *domain.User) error {
	u.ID = "id-" + u.Username
	m.byName[u.Username] = u
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryUsers) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	var n int64
	for _, u := range m.byName {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func TestSeedDefaultUsers(t *testing.T) {
	ctx := context.Background()
	seed := config.SeedConfig{DefaultUsers: true, AdminPassword: "admin-pw", SupportPassword: "support-pw"}

	users := &memoryUsers{byName: map[string]*domain.User{}}
	created, err := SeedDefaultUsers(ctx, users, seed, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	admin := users.byName["admin"]
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin-pw")))

	again, err := SeedDefaultUsers(ctx, users, seed, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestSeedDefaultUsersDisabled(t *testing.T) {
	users := &memoryUsers{byName: map[string]*domain.User{}}
	created, err := SeedDefaultUsers(context.Background(), users, config.SeedConfig{}, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, users.byName)
}
