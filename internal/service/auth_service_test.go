package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/request-tracker/internal/auth"
	"github.com/spec-kit/request-tracker/internal/domain"
	"github.com/spec-kit/request-tracker/internal/service/mocks"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

func TestAuthServiceLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	users := mocks.NewUserDirectory(&domain.User{
		ID:           "u-1",
		Username:     "alice",
		FullName:     "Alice Admin",
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	})
	tokens := auth.NewTokenManager("test-secret", 15)
	svc := NewAuthService(AuthDependencies{UserRepo: users, TokenManager: tokens})
	ctx := context.Background()

	user, token, exp, err := svc.Login(ctx, " alice ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.False(t, exp.IsZero())

	claims, err := tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, _, _, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(ctx, "bob", "s3cret")
	assert.True(t, apperrors.Is(err, apperrors.CodeUnauthorized))

	_, _, _, err = svc.Login(ctx, "", "")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
