package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/lead-service/internal/auth"
	"github.com/spec-kit/lead-service/internal/config"
	"github.com/spec-kit/lead-service/internal/domain"
)

func newAuthFixture(t *testing.T) (*fakeUserRepo, *AuthService) {
	t.Helper()
	users := newFakeUserRepo()
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 15,
		BcryptCost:            bcrypt.MinCost,
	}}
	return users, NewAuthService(cfg, users)
}

func seedUser(t *testing.T, users *fakeUserRepo, email, password string, active bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return users.put(&domain.User{
		Name: "Operator", Email: email, PasswordHash: hash,
		Role: domain.RoleNodalOfficer, Zone: strptr("north"), Active: active,
	})
}

func TestLoginIssuesRoleBearingToken(t *testing.T) {
	users, service := newAuthFixture(t)
	seeded := seedUser(t, users, "officer@bank.test", "correct-horse", true)

	user, token, expiresAt, err := service.Login(context.Background(), "officer@bank.test", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.False(t, expiresAt.IsZero())

	claims, err := service.TokenManager().ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, claims.UserID)
	assert.Equal(t, domain.RoleNodalOfficer, claims.Role)
	require.NotNil(t, claims.Zone)
	assert.Equal(t, "north", *claims.Zone)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users, service := newAuthFixture(t)
	seedUser(t, users, "officer@bank.test", "correct-horse", true)

	// Unknown email and wrong password fail identically.
	_, _, _, err := service.Login(context.Background(), "nobody@bank.test", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")

	_, _, _, err = service.Login(context.Background(), "officer@bank.test", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	users, service := newAuthFixture(t)
	seedUser(t, users, "gone@bank.test", "correct-horse", false)

	_, _, _, err := service.Login(context.Background(), "gone@bank.test", "correct-horse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deactivated")
}

func TestChangePassword(t *testing.T) {
	users, service := newAuthFixture(t)
	user := seedUser(t, users, "officer@bank.test", "old-password", true)

	err := service.ChangePassword(context.Background(), user, "old-password", "short")
	require.Error(t, err)

	err = service.ChangePassword(context.Background(), user, "wrong-current", "new-password-1")
	require.Error(t, err)

	err = service.ChangePassword(context.Background(), user, "old-password", "new-password-1")
	require.NoError(t, err)

	_, _, _, err = service.Login(context.Background(), "officer@bank.test", "new-password-1")
	require.NoError(t, err)
	_, _, _, err = service.Login(context.Background(), "officer@bank.test", "old-password")
	require.Error(t, err)
}
