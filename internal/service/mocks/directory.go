package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-tracker/internal/domain"
)

// UserDirectory is a map-backed repository.UserRepository.
type UserDirectory struct {
	mu    sync.Mutex
	users map[string]*domain.User
	Calls int
}

// NewUserDirectory seeds a directory with users.
func NewUserDirectory(users ...*domain.User) *UserDirectory {
	d := &UserDirectory{users: make(map[string]*domain.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

// GetByID implements repository.UserDirectory.
func (d *UserDirectory) GetByID(_ context.Context, id string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	u, ok := d.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *u
	return &copied, nil
}

// Create implements repository.UserRepository.
func (d *UserDirectory) Create(_ context.Context, user *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	d.users[user.ID] = &copied
	return nil
}

// GetByUsername implements repository.UserRepository.
func (d *UserDirectory) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// CountByRole implements repository.UserRepository.
func (d *UserDirectory) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for _, u := range d.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
