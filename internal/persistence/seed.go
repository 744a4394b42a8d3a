package persistence

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/config"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/repository"
)

// SeedDefaultUsers creates the admin and support accounts when no admin exists.
// It returns the number of users created.
func SeedDefaultUsers(ctx context.Context, users repository.UserRepository, seed config.SeedConfig, bcryptCost int, logger *zap.Logger) (int, error) {
	if !seed.DefaultUsers {
		return 0, nil
	}
	admins, err := users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return 0, err
	}
	if admins > 0 {
		logger.Debug("admin present; skipping default users")
		return 0, nil
	}

	defaults := []struct {
		user     domain.User
		password string
	}{
		{
			user: domain.User{
				Username:   "admin",
				FullName:   "Administrator",
				Department: "IT",
				Position:   "Administrator",
				Role:       domain.RoleAdmin,
			},
			password: seed.AdminPassword,
		},
		{
			user: domain.User{
				Username:   "support",
				FullName:   "Support Technician",
				Department: "IT",
				Position:   "Technician",
				Role:       domain.RoleSupport,
			},
			password: seed.SupportPassword,
		},
	}

	created := 0
	for _, d := range defaults {
		if _, err := users.GetByUsername(ctx, d.user.Username); err == nil {
			continue
		}
		hash, err := auth.HashPassword(d.password, bcryptCost)
		if err != nil {
			return created, err
		}
		u := d.user
		u.PasswordHash = hash
		if err := users.Create(ctx, &u); err != nil {
			return created, err
		}
		created++
		logger.Info("seeded default user", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	}
	return created, nil
}
